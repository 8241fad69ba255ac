package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	"github.com/google/uuid"
)

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert registers the endpoint for the user. A browser re-subscribing with
// the same endpoint replaces its keys and owner.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *entity.PushSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	query := `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (endpoint) DO UPDATE
			SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh,
				auth = EXCLUDED.auth, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID string) ([]*entity.PushSubscription, error) {
	query := `
		SELECT id, user_id, endpoint, p256dh, auth, created_at, updated_at
		FROM push_subscriptions
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*entity.PushSubscription
	for rows.Next() {
		var sub entity.PushSubscription
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Endpoint,
			&sub.P256dh,
			&sub.Auth,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan push subscription: %w", err)
		}
		subs = append(subs, &sub)
	}

	return subs, rows.Err()
}

// DeleteByEndpoint drops a subscription the push service reported as gone.
func (r *subscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) error {
	query := `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`
	result, err := r.db.ExecContext(ctx, query, userID, endpoint)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrSubscriptionNotFound
	}
	return nil
}
