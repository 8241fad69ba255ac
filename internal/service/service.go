package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
)

type EventService interface {
	// Основные операции
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id string) (*entity.Event, error)
	ListEvents(ctx context.Context, userEmail string, from, to time.Time) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// Дополнительные операции
	GetUpcomingReminders(ctx context.Context, userID string) (*entity.UpcomingReminders, error)
}

// ReminderService is the periodic entry point: one sweep plus one cleanup.
type ReminderService interface {
	RunCron(ctx context.Context) *entity.CronResult
	LastRun(ctx context.Context) (*entity.CronResult, error)
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, req *SubscribeRequest) (*entity.PushSubscription, error)
	Unsubscribe(ctx context.Context, req *UnsubscribeRequest) error
	SendPush(ctx context.Context, req *SendPushRequest) (*entity.PushResult, error)
	LinkTelegram(ctx context.Context, req *LinkTelegramRequest) error
}

// Scheduler arms and disarms per-event reminder timers.
type Scheduler interface {
	Arm(ctx context.Context, event *entity.Event) (*entity.ArmReport, error)
	Disarm(eventID string)
}
