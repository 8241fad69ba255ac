package reminder

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
)

const pruneThreshold = 1024

type localClaim struct {
	token   string
	expires time.Time
}

// LocalClaimer is the in-process Claimer used when Redis is not configured.
// It only protects against races inside one process.
type LocalClaimer struct {
	mu     sync.Mutex
	claims map[string]localClaim
	clock  clock.Clock
	seq    uint64
}

func NewLocalClaimer(clk clock.Clock) *LocalClaimer {
	return &LocalClaimer{
		claims: make(map[string]localClaim),
		clock:  clk,
	}
}

func localKey(eventID string, kind entity.ReminderKind) string {
	return eventID + "/" + string(kind)
}

func (c *LocalClaimer) Claim(_ context.Context, eventID string, kind entity.ReminderKind, ttl time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if len(c.claims) > pruneThreshold {
		c.prune(now)
	}

	key := localKey(eventID, kind)
	if cl, ok := c.claims[key]; ok && now.Before(cl.expires) {
		return "", false, nil
	}

	c.seq++
	token := strconv.FormatUint(c.seq, 10)
	c.claims[key] = localClaim{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (c *LocalClaimer) prune(now time.Time) {
	for key, cl := range c.claims {
		if !now.Before(cl.expires) {
			delete(c.claims, key)
		}
	}
}

func (c *LocalClaimer) Release(_ context.Context, eventID string, kind entity.ReminderKind, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := localKey(eventID, kind)
	if cl, ok := c.claims[key]; ok && cl.token == token {
		delete(c.claims, key)
	}
	return nil
}
