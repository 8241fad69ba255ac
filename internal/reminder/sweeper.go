package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sweeper is the periodic, stateless reconciliation pass. For every kind it
// dispatches the pending reminders whose window is open at now.
type Sweeper struct {
	store       Store
	dispatcher  Dispatcher
	catchUp     time.Duration
	concurrency int
}

func NewSweeper(store Store, dispatcher Dispatcher, catchUp time.Duration, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		store:       store,
		dispatcher:  dispatcher,
		catchUp:     catchUp,
		concurrency: concurrency,
	}
}

func (s *Sweeper) Sweep(ctx context.Context, now time.Time) *entity.SweepResult {
	result := entity.NewSweepResult()
	var mu sync.Mutex

	for _, kind := range entity.ReminderKinds {
		from, to := kind.Window(now, s.catchUp)

		events, err := s.store.FindPendingReminders(ctx, kind, from, to)
		if err != nil {
			logrus.WithField("kind", kind).Errorf("Failed to query pending reminders: %v", err)
			result.Success = false
			continue
		}
		if len(events) == 0 {
			continue
		}

		logrus.Debugf("Found %d pending %s reminders", len(events), kind)

		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, event := range events {
			event := event
			g.Go(func() error {
				outcome := s.dispatcher.DispatchIfDue(ctx, event.ID, kind)

				mu.Lock()
				result.Record(kind, outcome)
				mu.Unlock()
				return nil
			})
		}
		g.Wait()
	}

	if result.Sent > 0 || result.Errors > 0 {
		logrus.Infof("Reminder sweep completed: %d sent, %d failed, %d skipped",
			result.Sent, result.Errors, result.Skipped)
	}
	if result.Errors > 0 {
		logrus.Warnf("%d reminders failed to send and stay pending", result.Errors)
	}

	return result
}
