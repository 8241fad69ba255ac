package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newMockClock() *clock.Mock {
	mock := clock.NewMock()
	mock.Set(baseTime)
	return mock
}

// memStore is an in-memory Store with the same conditional semantics as the
// postgres repository.
type memStore struct {
	mu     sync.Mutex
	events map[string]*entity.Event

	getErr  error
	markErr error
	findErr map[entity.ReminderKind]error
	marks   int
}

func newMemStore(events ...*entity.Event) *memStore {
	s := &memStore{events: make(map[string]*entity.Event), findErr: make(map[entity.ReminderKind]error)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func newEvent(id string, start time.Time) *entity.Event {
	return &entity.Event{
		ID:        id,
		UserID:    "user-1",
		Title:     "Standup " + id,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Reminders: entity.NewReminders(),
		Owner:     &entity.User{ID: "user-1", Email: "user@example.com", Name: "User"},
	}
}

func (s *memStore) GetByID(_ context.Context, id string) (*entity.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}
	e, ok := s.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) FindPendingReminders(_ context.Context, kind entity.ReminderKind, from, to time.Time) ([]*entity.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.findErr[kind]; err != nil {
		return nil, err
	}

	var out []*entity.Event
	for _, e := range s.events {
		if e.Reminders.IsSent(kind) || e.StartTime.Before(from) || e.StartTime.After(to) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *memStore) MarkReminderSent(ctx context.Context, id string, kind entity.ReminderKind, startTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a driver refuses to run on a cancelled context
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.markErr != nil {
		return false, s.markErr
	}
	e, ok := s.events[id]
	if !ok || e.Reminders.IsSent(kind) || !e.StartTime.Equal(startTime) {
		return false, nil
	}
	e.Reminders.MarkSent(kind)
	s.marks++
	return true, nil
}

func (s *memStore) DeleteEndedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, e := range s.events {
		if e.EndTime.Before(cutoff) {
			ids = append(ids, id)
			delete(s.events, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// reschedule mirrors an edit through the repository: a time change resets all flags.
func (s *memStore) reschedule(id string, start time.Time) *entity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.events[id]
	if !e.StartTime.Equal(start) {
		e.StartTime = start
		e.EndTime = start.Add(30 * time.Minute)
		e.Reminders.Reset()
	}
	cp := *e
	return &cp
}

func (s *memStore) state(id string, kind entity.ReminderKind) entity.ReminderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].Reminders.State(kind)
}

type sentReminder struct {
	EventID string
	Kind    entity.ReminderKind
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentReminder
	err   error
	delay time.Duration
	// hang blocks until the delivery context is done
	hang bool
	// afterSend runs once a reminder was accepted
	afterSend func()
}

func (n *fakeNotifier) Notify(ctx context.Context, event *entity.Event, kind entity.ReminderKind) ([]string, error) {
	if n.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	if n.afterSend != nil {
		defer n.afterSend()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return nil, n.err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	n.sent = append(n.sent, sentReminder{EventID: event.ID, Kind: kind})
	return []string{"email"}, nil
}

func (n *fakeNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) countKind(kind entity.ReminderKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := 0
	for _, s := range n.sent {
		if s.Kind == kind {
			c++
		}
	}
	return c
}

type recordingAudit struct {
	mu     sync.Mutex
	audits []*entity.ReminderAudit
}

func (a *recordingAudit) Publish(_ context.Context, audit *entity.ReminderAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audits = append(a.audits, audit)
	return nil
}

// recordingArmer remembers what the scheduler asked for.
type recordingArmer struct {
	mu       sync.Mutex
	armed    map[string][]entity.ReminderKind
	disarmed []string
	err      error
}

func newRecordingArmer() *recordingArmer {
	return &recordingArmer{armed: make(map[string][]entity.ReminderKind)}
}

func (a *recordingArmer) Arm(_ context.Context, eventID string, kind entity.ReminderKind, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.armed[eventID] = append(a.armed[eventID], kind)
	return nil
}

func (a *recordingArmer) Disarm(eventID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.armed, eventID)
	a.disarmed = append(a.disarmed, eventID)
}

var errStoreDown = errors.New("connection refused")

func newTestEngine(store Store, notifier Notifier, clk clock.Clock) *Engine {
	return NewEngine(store, nil, notifier, nil, clk, EngineConfig{
		CatchUpWindow:   30 * time.Minute,
		DeliveryTimeout: time.Second,
	})
}
