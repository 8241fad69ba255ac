package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the claim only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ClaimRepository hands out short-lived per-(event, kind) dispatch claims so
// that only one instance delivers a reminder at a time.
type ClaimRepository struct {
	client *redis.Client
}

func NewClaimRepository(client *redis.Client) *ClaimRepository {
	return &ClaimRepository{client: client}
}

func claimKey(eventID string, kind entity.ReminderKind) string {
	return fmt.Sprintf("reminder:claim:%s:%s", eventID, kind)
}

// Claim returns a token and true when the claim was acquired.
func (r *ClaimRepository) Claim(ctx context.Context, eventID string, kind entity.ReminderKind, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, claimKey(eventID, kind), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *ClaimRepository) Release(ctx context.Context, eventID string, kind entity.ReminderKind, token string) error {
	err := releaseScript.Run(ctx, r.client, []string{claimKey(eventID, kind)}, token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release reminder claim: %w", err)
	}
	return nil
}
