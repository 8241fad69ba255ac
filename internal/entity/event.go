package entity

import (
	"time"
)

type Event struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	Location    string    `json:"location" db:"location"`
	Color       string    `json:"color" db:"color"`
	IsAllDay    bool      `json:"is_all_day" db:"is_all_day"`
	Attendees   []string  `json:"attendees" db:"attendees"`
	Organizer   string    `json:"organizer" db:"organizer"`
	Reminders   Reminders `json:"reminders"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Owner is filled by queries that join users; reminder delivery needs it.
	Owner *User `json:"owner,omitempty"`
}

func (e *Event) ValidateTimes() error {
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// TimeChanged reports whether other has a different start or end time.
func (e *Event) TimeChanged(other *Event) bool {
	return !e.StartTime.Equal(other.StartTime) || !e.EndTime.Equal(other.EndTime)
}

// UpcomingReminders groups a user's events starting today and tomorrow.
type UpcomingReminders struct {
	TodayEvents    []*Event `json:"todayEvents"`
	TomorrowEvents []*Event `json:"tomorrowEvents"`
}
