package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	"github.com/google/uuid"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeEventRepo struct {
	mu        sync.Mutex
	events    map[string]*entity.Event
	createErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*entity.Event)}
}

func (r *fakeEventRepo) Create(_ context.Context, event *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	event.ID = uuid.NewString()
	event.Reminders = entity.NewReminders()
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) GetByUserID(_ context.Context, userID string, from, to time.Time) ([]*entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Event
	for _, e := range r.events {
		if e.UserID == userID && !e.StartTime.Before(from) && e.StartTime.Before(to) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok {
		return entity.ErrEventNotFound
	}
	reminders := stored.Reminders
	if stored.TimeChanged(event) {
		reminders.Reset()
	}
	event.Reminders = reminders
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return entity.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) FindPendingReminders(context.Context, entity.ReminderKind, time.Time, time.Time) ([]*entity.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) MarkReminderSent(context.Context, string, entity.ReminderKind, time.Time) (bool, error) {
	return false, nil
}

func (r *fakeEventRepo) DeleteEndedBefore(context.Context, time.Time) ([]string, error) {
	return nil, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (r *fakeUserRepo) GetOrCreateByEmail(ctx context.Context, email, name string) (*entity.User, error) {
	if u, err := r.GetByEmail(ctx, email); err == nil {
		return u, nil
	}
	u := &entity.User{ID: uuid.NewString(), Email: email, Name: name}
	return u, r.Create(ctx, u)
}

func (r *fakeUserRepo) UpdateTelegramID(_ context.Context, userID, telegramID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return entity.ErrUserNotFound
	}
	u.TelegramID = telegramID
	return nil
}

// fakeScheduler records arm calls and can fail them.
type fakeScheduler struct {
	mu       sync.Mutex
	armed    []string
	disarmed []string
	err      error
}

func (s *fakeScheduler) Arm(_ context.Context, event *entity.Event) (*entity.ArmReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = append(s.armed, event.ID)
	return &entity.ArmReport{EventID: event.ID}, s.err
}

func (s *fakeScheduler) Disarm(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmed = append(s.disarmed, eventID)
}

var errArmFailed = errors.New("rabbitmq: channel closed")
