package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/redis/go-redis/v9"
)

const lastCronKey = "reminder:cron:last"

// StatusRepository keeps the result of the latest cron run for the status endpoint.
type StatusRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusRepository(client *redis.Client, ttl time.Duration) *StatusRepository {
	return &StatusRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *StatusRepository) SaveCronResult(ctx context.Context, result *entity.CronResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, lastCronKey, data, r.ttl).Err()
}

// LastCronResult returns nil, nil when no run was recorded yet.
func (r *StatusRepository) LastCronResult(ctx context.Context) (*entity.CronResult, error) {
	data, err := r.client.Get(ctx, lastCronKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var result entity.CronResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
