package reminder

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Scheduler arms the reminders of a single event when it is created or its
// time changes. Reminders whose fire time already passed are not armed.
type Scheduler struct {
	armer Armer
	clock clock.Clock
}

func NewScheduler(armer Armer, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{armer: armer, clock: clk}
}

// Arm replaces whatever was armed for the event before.
func (s *Scheduler) Arm(ctx context.Context, event *entity.Event) (*entity.ArmReport, error) {
	s.armer.Disarm(event.ID)

	report := &entity.ArmReport{EventID: event.ID}
	now := s.clock.Now()

	var errs []error
	for _, kind := range entity.ReminderKinds {
		fireAt := kind.FireTime(event.StartTime)
		if fireAt.Before(now) {
			report.Skipped = append(report.Skipped, kind)
			continue
		}

		if err := s.armer.Arm(ctx, event.ID, kind, fireAt); err != nil {
			errs = append(errs, fmt.Errorf("arm %s: %w", kind, err))
			continue
		}
		report.Armed = append(report.Armed, kind)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"armed":    report.Armed,
		"skipped":  report.Skipped,
	}).Debug("Event reminders armed")

	return report, errors.Join(errs...)
}

func (s *Scheduler) Disarm(eventID string) {
	s.armer.Disarm(eventID)
}
