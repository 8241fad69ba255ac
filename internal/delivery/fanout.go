package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/sirupsen/logrus"
)

// Channel delivers a rendered reminder. It returns an error wrapping
// entity.ErrChannelNotApplicable when the owner has no address on it.
type Channel interface {
	SendReminder(ctx context.Context, event *entity.Event, msg *Message) error
}

type namedChannel struct {
	name    string
	channel Channel
}

// Fanout sends one reminder through every registered channel in parallel.
// The reminder counts as delivered when at least one channel accepted it.
type Fanout struct {
	channels []namedChannel
	loc      *time.Location
}

func NewFanout(loc *time.Location) *Fanout {
	return &Fanout{loc: loc}
}

func (f *Fanout) Register(name string, ch Channel) {
	f.channels = append(f.channels, namedChannel{name: name, channel: ch})
}

func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for _, ch := range f.channels {
		names = append(names, ch.name)
	}
	return names
}

func (f *Fanout) Notify(ctx context.Context, event *entity.Event, kind entity.ReminderKind) ([]string, error) {
	msg, err := Render(event, kind, f.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrDeliveryFailed, err)
	}

	errs := make([]error, len(f.channels))
	var wg sync.WaitGroup
	for i, ch := range f.channels {
		i, ch := i, ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ch.channel.SendReminder(ctx, event, msg)
			if err == nil && ctx.Err() != nil {
				// accepted after the deadline counts as a failed attempt
				err = ctx.Err()
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	var (
		delivered []string
		failures  []error
	)
	for i, ch := range f.channels {
		switch err := errs[i]; {
		case err == nil:
			delivered = append(delivered, ch.name)
		case errors.Is(err, entity.ErrChannelNotApplicable):
		default:
			failures = append(failures, fmt.Errorf("%s: %w", ch.name, err))
		}
	}

	if len(delivered) > 0 {
		if len(failures) > 0 {
			logrus.WithFields(logrus.Fields{
				"event_id":  event.ID,
				"kind":      kind,
				"delivered": delivered,
			}).Warnf("Reminder partially delivered: %v", errors.Join(failures...))
		}
		return delivered, nil
	}
	if len(failures) == 0 {
		return nil, fmt.Errorf("%w: no applicable channel for event %s", entity.ErrDeliveryFailed, event.ID)
	}
	return nil, fmt.Errorf("%w: %w", entity.ErrDeliveryFailed, errors.Join(failures...))
}
