// Package reminder decides when event reminders are due and delivers each one
// at least once. Per-event timers give low latency; the periodic sweep is the
// source of truth and picks up anything the timers missed.
package reminder

import (
	"context"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
)

// Store is the slice of the event repository the reminder core needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	FindPendingReminders(ctx context.Context, kind entity.ReminderKind, from, to time.Time) ([]*entity.Event, error)
	MarkReminderSent(ctx context.Context, id string, kind entity.ReminderKind, startTime time.Time) (bool, error)
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Notifier delivers one reminder and returns the names of the channels that accepted it.
type Notifier interface {
	Notify(ctx context.Context, event *entity.Event, kind entity.ReminderKind) ([]string, error)
}

// Claimer serializes dispatch of the same (event, kind) across goroutines and instances.
type Claimer interface {
	Claim(ctx context.Context, eventID string, kind entity.ReminderKind, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, eventID string, kind entity.ReminderKind, token string) error
}

type AuditPublisher interface {
	Publish(ctx context.Context, audit *entity.ReminderAudit) error
}

// Dispatcher is implemented by Engine; timers, queues and the sweep call it.
type Dispatcher interface {
	DispatchIfDue(ctx context.Context, eventID string, kind entity.ReminderKind) entity.DispatchOutcome
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, eventID string, kind entity.ReminderKind) entity.DispatchOutcome

func (f DispatchFunc) DispatchIfDue(ctx context.Context, eventID string, kind entity.ReminderKind) entity.DispatchOutcome {
	return f(ctx, eventID, kind)
}

// Armer arranges for a single DispatchIfDue call at fireAt.
type Armer interface {
	Arm(ctx context.Context, eventID string, kind entity.ReminderKind, fireAt time.Time) error
	Disarm(eventID string)
}

type noopAudit struct{}

func (noopAudit) Publish(context.Context, *entity.ReminderAudit) error { return nil }
