package entity

import "time"

// DispatchOutcome is the result of one dispatch attempt for an (event, kind).
type DispatchOutcome string

const (
	OutcomeSent    DispatchOutcome = "sent"
	OutcomeSkipped DispatchOutcome = "skipped"
	OutcomeFailed  DispatchOutcome = "failed"
)

type KindCounts struct {
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

func (c *KindCounts) Add(outcome DispatchOutcome) {
	switch outcome {
	case OutcomeSent:
		c.Sent++
	case OutcomeFailed:
		c.Errors++
	default:
		c.Skipped++
	}
}

type SweepResult struct {
	Success bool                         `json:"success"`
	Sent    int                          `json:"sent"`
	Errors  int                          `json:"errors"`
	Skipped int                          `json:"skipped"`
	ByKind  map[ReminderKind]*KindCounts `json:"by_kind"`
}

func NewSweepResult() *SweepResult {
	byKind := make(map[ReminderKind]*KindCounts, len(ReminderKinds))
	for _, kind := range ReminderKinds {
		byKind[kind] = &KindCounts{}
	}
	return &SweepResult{Success: true, ByKind: byKind}
}

// Record counts one dispatch outcome. Callers synchronize.
func (r *SweepResult) Record(kind ReminderKind, outcome DispatchOutcome) {
	r.ByKind[kind].Add(outcome)
	switch outcome {
	case OutcomeSent:
		r.Sent++
	case OutcomeFailed:
		r.Errors++
	default:
		r.Skipped++
	}
}

type CleanupResult struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}

// CronResult is returned by the periodic entry point.
type CronResult struct {
	Success        bool          `json:"success"`
	ReminderResult SweepResult   `json:"reminderResult"`
	CleanupResult  CleanupResult `json:"cleanupResult"`
	Timestamp      time.Time     `json:"timestamp"`
}

// ArmReport lists which reminder kinds got armed for an event and which were
// skipped because their fire time had already passed.
type ArmReport struct {
	EventID string         `json:"event_id"`
	Armed   []ReminderKind `json:"armed"`
	Skipped []ReminderKind `json:"skipped"`
}

// ReminderAudit is published once per delivery attempt.
type ReminderAudit struct {
	EventID     string          `json:"event_id"`
	UserID      string          `json:"user_id"`
	Kind        ReminderKind    `json:"kind"`
	Outcome     DispatchOutcome `json:"outcome"`
	Confirmed   bool            `json:"confirmed"`
	Channels    []string        `json:"channels,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	AttemptedAt time.Time       `json:"attempted_at"`
}
