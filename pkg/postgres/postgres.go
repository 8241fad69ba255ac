package postgres

import (
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/calendar-reminders/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Migrations is the ordered schema. Every statement is idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		telegram_id VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		color VARCHAR(32) NOT NULL DEFAULT '',
		is_all_day BOOLEAN NOT NULL DEFAULT FALSE,
		attendees TEXT[] NOT NULL DEFAULT '{}',
		organizer TEXT NOT NULL DEFAULT '',
		reminder_day_before_sent BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_hour_before_sent BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_five_min_before_sent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT events_end_after_start CHECK (end_time > start_time)
	)`,

	`CREATE TABLE IF NOT EXISTS push_subscriptions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		endpoint TEXT UNIQUE NOT NULL,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Indexes
	`CREATE INDEX IF NOT EXISTS idx_events_user_start ON events(user_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_end_time ON events(end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_pending_day_before ON events(start_time) WHERE reminder_day_before_sent = FALSE`,
	`CREATE INDEX IF NOT EXISTS idx_events_pending_hour_before ON events(start_time) WHERE reminder_hour_before_sent = FALSE`,
	`CREATE INDEX IF NOT EXISTS idx_events_pending_five_min_before ON events(start_time) WHERE reminder_five_min_before_sent = FALSE`,
	`CREATE INDEX IF NOT EXISTS idx_push_subscriptions_user_id ON push_subscriptions(user_id)`,
}

func RunMigrations(db *sql.DB) error {
	for i, migration := range Migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
