package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

type armedTimer struct {
	timer *clock.Timer
	gen   uint64
}

// TimerArmer keeps one-shot in-process timers per (event, kind). Delays longer
// than maxDelay are split into stages: the timer wakes up at the bound and
// re-arms itself for the remainder. Timers die with the process; the sweep
// covers whatever they would have sent.
type TimerArmer struct {
	mu       sync.Mutex
	timers   map[string]map[entity.ReminderKind]armedTimer
	gen      uint64
	clock    clock.Clock
	maxDelay time.Duration
	dispatch Dispatcher
	ctx      context.Context
}

// NewTimerArmer dispatches through d with ctx once a timer fires. Cancelling
// ctx turns pending timers into no-ops.
func NewTimerArmer(ctx context.Context, clk clock.Clock, maxDelay time.Duration, d Dispatcher) *TimerArmer {
	if clk == nil {
		clk = clock.New()
	}
	return &TimerArmer{
		timers:   make(map[string]map[entity.ReminderKind]armedTimer),
		clock:    clk,
		maxDelay: maxDelay,
		dispatch: d,
		ctx:      ctx,
	}
}

func (a *TimerArmer) Arm(_ context.Context, eventID string, kind entity.ReminderKind, fireAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.schedule(eventID, kind, fireAt)
	return nil
}

// schedule must be called with mu held.
func (a *TimerArmer) schedule(eventID string, kind entity.ReminderKind, fireAt time.Time) {
	byKind, ok := a.timers[eventID]
	if !ok {
		byKind = make(map[entity.ReminderKind]armedTimer)
		a.timers[eventID] = byKind
	}
	if prev, ok := byKind[kind]; ok {
		prev.timer.Stop()
	}

	delay := fireAt.Sub(a.clock.Now())
	if delay < 0 {
		delay = 0
	}
	if a.maxDelay > 0 && delay > a.maxDelay {
		delay = a.maxDelay
	}

	a.gen++
	gen := a.gen
	byKind[kind] = armedTimer{
		timer: a.clock.AfterFunc(delay, func() { a.fire(eventID, kind, fireAt, gen) }),
		gen:   gen,
	}
}

func (a *TimerArmer) fire(eventID string, kind entity.ReminderKind, fireAt time.Time, gen uint64) {
	a.mu.Lock()
	entry, ok := a.timers[eventID][kind]
	if !ok || entry.gen != gen {
		// disarmed or replaced
		a.mu.Unlock()
		return
	}

	if a.clock.Now().Before(fireAt) {
		a.schedule(eventID, kind, fireAt)
		a.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"event_id": eventID,
			"kind":     kind,
			"fire_at":  fireAt,
		}).Debug("Reminder timer re-armed for next stage")
		return
	}

	delete(a.timers[eventID], kind)
	if len(a.timers[eventID]) == 0 {
		delete(a.timers, eventID)
	}
	a.mu.Unlock()

	if a.ctx.Err() != nil {
		return
	}
	a.dispatch.DispatchIfDue(a.ctx, eventID, kind)
}

func (a *TimerArmer) Disarm(eventID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, entry := range a.timers[eventID] {
		entry.timer.Stop()
	}
	delete(a.timers, eventID)
}

// Pending returns how many timers are armed.
func (a *TimerArmer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, byKind := range a.timers {
		n += len(byKind)
	}
	return n
}

// Stop cancels every timer, used on shutdown.
func (a *TimerArmer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for eventID, byKind := range a.timers {
		for _, entry := range byKind {
			entry.timer.Stop()
		}
		delete(a.timers, eventID)
	}
}
