package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
)

type EventRepository interface {
	// CRUD операции
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	GetByUserID(ctx context.Context, userID string, from, to time.Time) ([]*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id string) error

	// Reminder state
	FindPendingReminders(ctx context.Context, kind entity.ReminderKind, from, to time.Time) ([]*entity.Event, error)
	MarkReminderSent(ctx context.Context, id string, kind entity.ReminderKind, startTime time.Time) (bool, error)
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetOrCreateByEmail(ctx context.Context, email, name string) (*entity.User, error)
	UpdateTelegramID(ctx context.Context, userID, telegramID string) error
}

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *entity.PushSubscription) error
	GetByUserID(ctx context.Context, userID string) ([]*entity.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) error
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
