package entity

import (
	"fmt"
	"time"
)

// ReminderKind identifies one of the three reminders an event can produce.
type ReminderKind string

const (
	ReminderDayBefore     ReminderKind = "day_before"
	ReminderHourBefore    ReminderKind = "hour_before"
	ReminderFiveMinBefore ReminderKind = "five_min_before"
)

// ReminderKinds lists every kind in firing order.
var ReminderKinds = []ReminderKind{
	ReminderDayBefore,
	ReminderHourBefore,
	ReminderFiveMinBefore,
}

func ParseReminderKind(s string) (ReminderKind, error) {
	switch k := ReminderKind(s); k {
	case ReminderDayBefore, ReminderHourBefore, ReminderFiveMinBefore:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReminderKind, s)
}

// Offset is how long before start_time the reminder fires.
func (k ReminderKind) Offset() time.Duration {
	switch k {
	case ReminderDayBefore:
		return 24 * time.Hour
	case ReminderHourBefore:
		return time.Hour
	case ReminderFiveMinBefore:
		return 5 * time.Minute
	}
	return 0
}

// FireTime returns start - offset.
func (k ReminderKind) FireTime(start time.Time) time.Time {
	return start.Add(-k.Offset())
}

// Window returns the range of start times that are due for this kind at now.
// The upper bound is now+offset. The lower bound is now, raised to
// now+offset-catchUp when catchUp is positive and shorter than the offset,
// so reminders whose fire time passed more than catchUp ago are never sent.
func (k ReminderKind) Window(now time.Time, catchUp time.Duration) (from, to time.Time) {
	to = now.Add(k.Offset())
	from = now
	if catchUp > 0 && catchUp < k.Offset() {
		from = to.Add(-catchUp)
	}
	return from, to
}

// Due reports whether an event starting at start falls inside the window at now.
func (k ReminderKind) Due(start, now time.Time, catchUp time.Duration) bool {
	from, to := k.Window(now, catchUp)
	return !start.Before(from) && !start.After(to)
}

// Timeframe is the human phrase used in subjects: "starting tomorrow".
func (k ReminderKind) Timeframe() string {
	switch k {
	case ReminderDayBefore:
		return "tomorrow"
	case ReminderHourBefore:
		return "in 1 hour"
	case ReminderFiveMinBefore:
		return "in 5 minutes"
	}
	return "soon"
}

// Column is the events table column holding the sent flag for this kind.
func (k ReminderKind) Column() string {
	switch k {
	case ReminderDayBefore:
		return "reminder_day_before_sent"
	case ReminderHourBefore:
		return "reminder_hour_before_sent"
	case ReminderFiveMinBefore:
		return "reminder_five_min_before_sent"
	}
	return ""
}

type ReminderState string

const (
	ReminderPending ReminderState = "pending"
	ReminderSent    ReminderState = "sent"
)

// Reminders holds the state of each reminder kind for one event.
// The only transitions are pending -> sent (dispatch) and sent -> pending (Reset on a time edit).
type Reminders struct {
	DayBefore     ReminderState `json:"day_before"`
	HourBefore    ReminderState `json:"hour_before"`
	FiveMinBefore ReminderState `json:"five_min_before"`
}

func NewReminders() Reminders {
	return Reminders{
		DayBefore:     ReminderPending,
		HourBefore:    ReminderPending,
		FiveMinBefore: ReminderPending,
	}
}

// RemindersFromFlags converts the stored boolean columns.
func RemindersFromFlags(dayBefore, hourBefore, fiveMinBefore bool) Reminders {
	return Reminders{
		DayBefore:     stateOf(dayBefore),
		HourBefore:    stateOf(hourBefore),
		FiveMinBefore: stateOf(fiveMinBefore),
	}
}

func stateOf(sent bool) ReminderState {
	if sent {
		return ReminderSent
	}
	return ReminderPending
}

func (r Reminders) State(kind ReminderKind) ReminderState {
	switch kind {
	case ReminderDayBefore:
		return r.DayBefore
	case ReminderHourBefore:
		return r.HourBefore
	case ReminderFiveMinBefore:
		return r.FiveMinBefore
	}
	return ReminderPending
}

func (r Reminders) IsSent(kind ReminderKind) bool {
	return r.State(kind) == ReminderSent
}

func (r *Reminders) MarkSent(kind ReminderKind) {
	switch kind {
	case ReminderDayBefore:
		r.DayBefore = ReminderSent
	case ReminderHourBefore:
		r.HourBefore = ReminderSent
	case ReminderFiveMinBefore:
		r.FiveMinBefore = ReminderSent
	}
}

func (r *Reminders) Reset() {
	*r = NewReminders()
}
