package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/ds124wfegd/calendar-reminders/internal/database/postgres"
	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// CreateEventRequest represents the data needed to create an event
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=1,max=255"`
	Description string    `json:"description" binding:"max=2000"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Location    string    `json:"location" binding:"max=255"`
	Color       string    `json:"color" binding:"max=32"`
	IsAllDay    bool      `json:"is_all_day"`
	Attendees   []string  `json:"attendees"`
	Organizer   string    `json:"organizer"`
	UserEmail   string    `json:"user_email" binding:"required,email"`
	UserName    string    `json:"user_name"`
}

// UpdateEventRequest represents the data needed to update an event
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Color       *string    `json:"color,omitempty"`
	IsAllDay    *bool      `json:"is_all_day,omitempty"`
	Attendees   []string   `json:"attendees,omitempty"`
	Organizer   *string    `json:"organizer,omitempty"`
}

type eventService struct {
	eventRepo repository.EventRepository
	userRepo  repository.UserRepository
	scheduler Scheduler
	clock     clock.Clock
	location  *time.Location
}

// NewEventService creates a new instance of EventService. scheduler may be nil,
// then reminders are only delivered by the sweep.
func NewEventService(
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
	scheduler Scheduler,
	clk clock.Clock,
	location *time.Location,
) EventService {
	if clk == nil {
		clk = clock.New()
	}
	if location == nil {
		location = time.UTC
	}
	return &eventService{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		scheduler: scheduler,
		clock:     clk,
		location:  location,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidInput)
	}

	event := &entity.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Color:       req.Color,
		IsAllDay:    req.IsAllDay,
		Attendees:   cleanAttendees(req.Attendees),
		Organizer:   req.Organizer,
	}
	if err := event.ValidateTimes(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetOrCreateByEmail(ctx, req.UserEmail, req.UserName)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	event.UserID = user.ID
	event.Owner = user

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.arm(ctx, event)
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, userEmail string, from, to time.Time) ([]*entity.Event, error) {
	user, err := s.userRepo.GetByEmail(ctx, userEmail)
	if errors.Is(err, entity.ErrUserNotFound) {
		return []*entity.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	events, err := s.eventRepo.GetByUserID(ctx, user.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*entity.Event, error) {
	// Get existing event
	existing, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing event: %w", err)
	}

	event := *existing
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidInput)
		}
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Color != nil {
		event.Color = *req.Color
	}
	if req.IsAllDay != nil {
		event.IsAllDay = *req.IsAllDay
	}
	if req.Attendees != nil {
		event.Attendees = cleanAttendees(req.Attendees)
	}
	if req.Organizer != nil {
		event.Organizer = *req.Organizer
	}

	if err := event.ValidateTimes(); err != nil {
		return nil, err
	}

	// flags are reset by the repository in the same statement
	if err := s.eventRepo.Update(ctx, &event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if event.TimeChanged(existing) {
		s.arm(ctx, &event)
	}
	return &event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if s.scheduler != nil {
		s.scheduler.Disarm(id)
	}
	return nil
}

// GetUpcomingReminders returns events starting today and tomorrow in the configured timezone.
func (s *eventService) GetUpcomingReminders(ctx context.Context, userID string) (*entity.UpcomingReminders, error) {
	now := s.clock.Now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := today.AddDate(0, 0, 2)

	todayEvents, err := s.eventRepo.GetByUserID(ctx, userID, today, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today's events: %w", err)
	}
	tomorrowEvents, err := s.eventRepo.GetByUserID(ctx, userID, tomorrow, dayAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tomorrow's events: %w", err)
	}

	return &entity.UpcomingReminders{
		TodayEvents:    nonNil(todayEvents),
		TomorrowEvents: nonNil(tomorrowEvents),
	}, nil
}

// arm never fails the calling CRUD operation.
func (s *eventService) arm(ctx context.Context, event *entity.Event) {
	if s.scheduler == nil {
		return
	}
	if _, err := s.scheduler.Arm(context.WithoutCancel(ctx), event); err != nil {
		logrus.WithField("event_id", event.ID).Errorf("Failed to arm reminders, sweep will cover them: %v", err)
	}
}

func cleanAttendees(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func nonNil(events []*entity.Event) []*entity.Event {
	if events == nil {
		return []*entity.Event{}
	}
	return events
}
