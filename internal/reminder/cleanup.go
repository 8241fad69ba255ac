package reminder

import (
	"context"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/sirupsen/logrus"
)

const DefaultRetention = 30 * 24 * time.Hour

// Cleaner removes events that ended longer than retention ago.
type Cleaner struct {
	store     Store
	scheduler *Scheduler
	retention time.Duration
}

func NewCleaner(store Store, scheduler *Scheduler, retention time.Duration) *Cleaner {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Cleaner{
		store:     store,
		scheduler: scheduler,
		retention: retention,
	}
}

func (c *Cleaner) Cleanup(ctx context.Context, now time.Time) *entity.CleanupResult {
	cutoff := now.Add(-c.retention)

	ids, err := c.store.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Failed to clean up old events: %v", err)
		return &entity.CleanupResult{Success: false}
	}

	if c.scheduler != nil {
		for _, id := range ids {
			c.scheduler.Disarm(id)
		}
	}

	if len(ids) > 0 {
		logrus.Infof("Cleaned up %d events that ended before %s", len(ids), cutoff.Format(time.RFC3339))
	}
	return &entity.CleanupResult{Success: true, Removed: len(ids)}
}
