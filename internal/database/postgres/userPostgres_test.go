package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTelegramID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	query := regexp.QuoteMeta(`UPDATE users SET telegram_id = $1 WHERE id = $2`)

	mock.ExpectExec(query).WithArgs("42", "user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateTelegramID(context.Background(), "user-1", "42"))

	mock.ExpectExec(query).WithArgs("42", "ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateTelegramID(context.Background(), "ghost", "42"), entity.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
