package service

import (
	"context"
	"sync"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	"github.com/ds124wfegd/calendar-reminders/internal/reminder"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// StatusStore keeps the last cron result visible to every instance.
type StatusStore interface {
	SaveCronResult(ctx context.Context, result *entity.CronResult) error
	LastCronResult(ctx context.Context) (*entity.CronResult, error)
}

type reminderService struct {
	sweeper *reminder.Sweeper
	cleaner *reminder.Cleaner
	status  StatusStore
	clock   clock.Clock

	mu   sync.RWMutex
	last *entity.CronResult
}

func NewReminderService(sweeper *reminder.Sweeper, cleaner *reminder.Cleaner, status StatusStore, clk clock.Clock) ReminderService {
	if clk == nil {
		clk = clock.New()
	}
	return &reminderService{
		sweeper: sweeper,
		cleaner: cleaner,
		status:  status,
		clock:   clk,
	}
}

func (s *reminderService) RunCron(ctx context.Context) *entity.CronResult {
	now := s.clock.Now()

	sweep := s.sweeper.Sweep(ctx, now)
	cleanup := s.cleaner.Cleanup(ctx, now)

	result := &entity.CronResult{
		Success:        sweep.Success && cleanup.Success,
		ReminderResult: *sweep,
		CleanupResult:  *cleanup,
		Timestamp:      now,
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	if s.status != nil {
		if err := s.status.SaveCronResult(context.WithoutCancel(ctx), result); err != nil {
			logrus.Warnf("Failed to save cron status: %v", err)
		}
	}

	return result
}

// LastRun prefers the shared status, falling back to this instance's last run.
func (s *reminderService) LastRun(ctx context.Context) (*entity.CronResult, error) {
	if s.status != nil {
		result, err := s.status.LastCronResult(ctx)
		if err != nil {
			logrus.Warnf("Failed to read cron status: %v", err)
		} else if result != nil {
			return result, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, nil
}
