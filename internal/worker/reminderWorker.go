package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderWorker triggers the reminder sweep and cleanup on a cron schedule.
// A run that is still going when the next one is due makes the next one skip.
type ReminderWorker struct {
	reminderService service.ReminderService
	schedule        string
	location        *time.Location

	runs   atomic.Int64
	failed atomic.Int64
}

func NewReminderWorker(reminderService service.ReminderService, schedule string, location *time.Location) *ReminderWorker {
	if location == nil {
		location = time.UTC
	}
	return &ReminderWorker{
		reminderService: reminderService,
		schedule:        schedule,
		location:        location,
	}
}

// Start blocks until ctx is cancelled and the running job, if any, has finished.
func (w *ReminderWorker) Start(ctx context.Context) error {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	c := cron.New(
		cron.WithLocation(w.location),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(w.schedule, func() { w.run(ctx) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", w.schedule, err)
	}

	c.Start()
	logrus.Infof("Reminder worker started with schedule %q", w.schedule)

	<-ctx.Done()

	logrus.Info("Reminder worker stopping...")
	<-c.Stop().Done()
	logrus.Info("Reminder worker stopped")
	return nil
}

// run выполняет один проход рассылки и очистки
func (w *ReminderWorker) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.runs.Add(1)
	result := w.reminderService.RunCron(ctx)
	if !result.Success {
		w.failed.Add(1)
		logrus.Warnf("Reminder run finished with errors: %d sent, %d failed, %d removed",
			result.ReminderResult.Sent, result.ReminderResult.Errors, result.CleanupResult.Removed)
		return
	}

	logrus.Debugf("Reminder run completed: %d sent, %d removed",
		result.ReminderResult.Sent, result.CleanupResult.Removed)
}

// GetStats возвращает статистику работы воркера
func (w *ReminderWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type": "reminder_sweep",
		"schedule":    w.schedule,
		"runs":        w.runs.Load(),
		"failed_runs": w.failed.Load(),
	}
}
