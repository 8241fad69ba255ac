package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const eventColumns = `
	e.id, e.user_id, e.title, e.description, e.start_time, e.end_time,
	e.location, e.color, e.is_all_day, e.attendees, e.organizer,
	e.reminder_day_before_sent, e.reminder_hour_before_sent, e.reminder_five_min_before_sent,
	e.created_at, e.updated_at,
	u.id, u.email, u.name, u.telegram_id, u.created_at`

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(row scanner) (*entity.Event, error) {
	var (
		event                          entity.Event
		owner                          entity.User
		attendees                      pq.StringArray
		dayBefore, hourBefore, fiveMin bool
	)

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.Title,
		&event.Description,
		&event.StartTime,
		&event.EndTime,
		&event.Location,
		&event.Color,
		&event.IsAllDay,
		&attendees,
		&event.Organizer,
		&dayBefore,
		&hourBefore,
		&fiveMin,
		&event.CreatedAt,
		&event.UpdatedAt,
		&owner.ID,
		&owner.Email,
		&owner.Name,
		&owner.TelegramID,
		&owner.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Attendees = []string(attendees)
	event.Reminders = entity.RemindersFromFlags(dayBefore, hourBefore, fiveMin)
	event.Owner = &owner
	return &event, nil
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*entity.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// Create inserts the event with every reminder pending.
func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Reminders = entity.NewReminders()

	query := `
		INSERT INTO events (id, user_id, title, description, start_time, end_time,
			location, color, is_all_day, attendees, organizer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.UserID,
		event.Title,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.Color,
		event.IsAllDay,
		pq.Array(event.Attendees),
		event.Organizer,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get event: %w", entity.ErrStoreUnavailable, err)
	}

	return event, nil
}

// GetByUserID returns the user's events starting in [from, to).
func (r *eventRepository) GetByUserID(ctx context.Context, userID string, from, to time.Time) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.user_id = $1 AND e.start_time >= $2 AND e.start_time < $3
		ORDER BY e.start_time ASC`

	events, err := r.queryEvents(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by user: %w", err)
	}

	return events, nil
}

// Update writes the event. When start_time or end_time differ from the stored
// row, all reminder flags are reset in the same statement.
func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, color = $4,
			is_all_day = $5, attendees = $6, organizer = $7,
			reminder_day_before_sent = CASE WHEN start_time <> $8 OR end_time <> $9
				THEN FALSE ELSE reminder_day_before_sent END,
			reminder_hour_before_sent = CASE WHEN start_time <> $8 OR end_time <> $9
				THEN FALSE ELSE reminder_hour_before_sent END,
			reminder_five_min_before_sent = CASE WHEN start_time <> $8 OR end_time <> $9
				THEN FALSE ELSE reminder_five_min_before_sent END,
			start_time = $8, end_time = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING reminder_day_before_sent, reminder_hour_before_sent, reminder_five_min_before_sent, updated_at
	`

	var dayBefore, hourBefore, fiveMin bool
	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.Color,
		event.IsAllDay,
		pq.Array(event.Attendees),
		event.Organizer,
		event.StartTime,
		event.EndTime,
		event.ID,
	).Scan(&dayBefore, &hourBefore, &fiveMin, &event.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	event.Reminders = entity.RemindersFromFlags(dayBefore, hourBefore, fiveMin)
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}

	return nil
}

// FindPendingReminders returns events whose reminder of kind is still pending
// and whose start_time lies in [from, to].
func (r *eventRepository) FindPendingReminders(ctx context.Context, kind entity.ReminderKind, from, to time.Time) ([]*entity.Event, error) {
	column := kind.Column()
	if column == "" {
		return nil, entity.ErrUnknownReminderKind
	}

	query := `SELECT ` + eventColumns + `
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.` + column + ` = FALSE
			AND e.start_time >= $1 AND e.start_time <= $2
		ORDER BY e.start_time ASC`

	events, err := r.queryEvents(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query pending %s reminders: %w", entity.ErrStoreUnavailable, kind, err)
	}

	return events, nil
}

// MarkReminderSent flips the flag for kind only if it is still false and the
// event still starts at startTime. It reports whether this call did the flip.
func (r *eventRepository) MarkReminderSent(ctx context.Context, id string, kind entity.ReminderKind, startTime time.Time) (bool, error) {
	column := kind.Column()
	if column == "" {
		return false, entity.ErrUnknownReminderKind
	}

	query := `UPDATE events SET ` + column + ` = TRUE, updated_at = NOW()
		WHERE id = $1 AND ` + column + ` = FALSE AND start_time = $2`

	result, err := r.db.ExecContext(ctx, query, id, startTime)
	if err != nil {
		return false, fmt.Errorf("%w: failed to mark %s reminder sent: %w", entity.ErrStoreUnavailable, kind, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *eventRepository) DeleteEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `DELETE FROM events WHERE end_time < $1 RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to delete old events: %w", entity.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted event id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
