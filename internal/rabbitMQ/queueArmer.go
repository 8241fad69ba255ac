package rabbitMQ

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	"github.com/ds124wfegd/calendar-reminders/internal/reminder"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

type armMessage struct {
	EventID string              `json:"event_id"`
	Kind    entity.ReminderKind `json:"kind"`
	FireAt  time.Time           `json:"fire_at"`
}

// QueueArmer arms reminders as delayed RabbitMQ messages, so armed reminders
// survive a restart of this process. A message that arrives before its fire
// time is parked again for the remainder.
//
// Disarm is a no-op: a message for a deleted or moved event reaches the
// engine, which re-reads the event and skips it.
type QueueArmer struct {
	queue      Queue
	clock      clock.Clock
	maxDelay   time.Duration
	dispatcher reminder.Dispatcher
}

func NewQueueArmer(queue Queue, clk clock.Clock, maxDelay time.Duration, d reminder.Dispatcher) *QueueArmer {
	if clk == nil {
		clk = clock.New()
	}
	return &QueueArmer{
		queue:      queue,
		clock:      clk,
		maxDelay:   maxDelay,
		dispatcher: d,
	}
}

func (a *QueueArmer) Arm(ctx context.Context, eventID string, kind entity.ReminderKind, fireAt time.Time) error {
	return a.park(ctx, armMessage{EventID: eventID, Kind: kind, FireAt: fireAt})
}

func (a *QueueArmer) Disarm(string) {}

// Start consumes due messages until ctx is cancelled.
func (a *QueueArmer) Start(ctx context.Context) error {
	return a.queue.Consume(ctx, a.handle)
}

func (a *QueueArmer) park(ctx context.Context, msg armMessage) error {
	delay := msg.FireAt.Sub(a.clock.Now())
	if a.maxDelay > 0 && delay > a.maxDelay {
		delay = a.maxDelay
	}
	if err := a.queue.PublishWithDelay(ctx, msg, delay); err != nil {
		return fmt.Errorf("failed to arm %s reminder for event %s: %w", msg.Kind, msg.EventID, err)
	}
	return nil
}

func (a *QueueArmer) handle(ctx context.Context, body []byte) error {
	var msg armMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// битое сообщение не переотправляем
		logrus.Errorf("Dropping malformed reminder message: %v", err)
		return nil
	}
	if _, err := entity.ParseReminderKind(string(msg.Kind)); err != nil {
		logrus.Errorf("Dropping reminder message: %v", err)
		return nil
	}

	if a.clock.Now().Before(msg.FireAt) {
		return a.park(ctx, msg)
	}

	// failures are not retried here, the sweep picks them up
	a.dispatcher.DispatchIfDue(ctx, msg.EventID, msg.Kind)
	return nil
}
