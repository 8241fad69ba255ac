package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/google/uuid"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var user entity.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.TelegramID,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT id, email, name, telegram_id, created_at FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT id, email, name, telegram_id, created_at FROM users WHERE email = $1`, email)
}

// GetOrCreateByEmail returns the user owning email, creating it on first use.
// An empty stored name is filled from name.
func (r *userRepository) GetOrCreateByEmail(ctx context.Context, email, name string) (*entity.User, error) {
	query := `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
			SET name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END
		RETURNING id, email, name, telegram_id, created_at
	`

	var user entity.User
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), email, name).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.TelegramID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return &user, nil
}

// UpdateTelegramID links the chat that receives telegram reminders.
func (r *userRepository) UpdateTelegramID(ctx context.Context, userID, telegramID string) error {
	query := `UPDATE users SET telegram_id = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, telegramID, userID)
	if err != nil {
		return fmt.Errorf("failed to update telegram id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}
