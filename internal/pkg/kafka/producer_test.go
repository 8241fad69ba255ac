package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditMessage(t *testing.T) {
	attempted := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	audit := &entity.ReminderAudit{
		EventID:     "ev-1",
		UserID:      "user-1",
		Kind:        entity.ReminderHourBefore,
		Outcome:     entity.OutcomeSent,
		Confirmed:   true,
		Channels:    []string{"email", "push"},
		StartTime:   attempted.Add(time.Hour),
		AttemptedAt: attempted,
	}

	msg, err := auditMessage(audit)
	require.NoError(t, err)

	assert.Equal(t, []byte("ev-1"), msg.Key)
	assert.Equal(t, attempted, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "hour_before", string(msg.Headers[0].Value))
	assert.Equal(t, "sent", string(msg.Headers[1].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ev-1", decoded["event_id"])
	assert.Equal(t, true, decoded["confirmed"])
	assert.NotContains(t, decoded, "error")
}

func TestMockProducer(t *testing.T) {
	p := NewMockProducer()
	assert.NoError(t, p.Publish(context.Background(), &entity.ReminderAudit{EventID: "ev-1"}))
	assert.NoError(t, p.Close())
}
