package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/companion-app/companion-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows becomes not found", func(t *testing.T) {
		t.Parallel()
		err := MapError(sql.ErrNoRows)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique violation becomes duplicate", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_key"}
		err := MapError(fmt.Errorf("insert failed: %w", pgErr))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("foreign key violation becomes invalid entity", func(t *testing.T) {
		t.Parallel()
		pgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "notes_user_id_fkey"}
		err := MapError(pgErr)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "notes_user_id_fkey")
	})

	t.Run("unknown error passes through", func(t *testing.T) {
		t.Parallel()
		original := errors.New("connection reset")
		assert.Equal(t, original, MapError(original))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("create note: %w", &pgconn.PgError{Code: foreignKeyViolationCode})
	assert.True(t, IsForeignKeyViolation(wrapped))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: uniqueViolationCode}))
}

func TestCheckRowsAffectedNilResult(t *testing.T) {
	t.Parallel()

	err := CheckRowsAffected(nil, "user")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}
