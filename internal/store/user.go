package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
)

// UserStore persists user accounts. Password hashing happens inside the
// store so plaintext passwords never reach SQL.
type UserStore interface {
	// Create validates, hashes the password, and inserts a new user.
	// Fails with ErrEmailExists when the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID looks a user up by ID, returning ErrUserNotFound when
	// absent. The plaintext Password field is never populated.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail looks a user up by email, returning ErrUserNotFound
	// when absent.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists changes to an existing user. A non-empty plaintext
	// Password is hashed and replaces the stored hash; otherwise the old
	// hash is kept. Fails with ErrUserNotFound or, when changing to a
	// taken email, ErrEmailExists.
	Update(ctx context.Context, user *domain.User) error

	// Deactivate clears the account's active flag. The row is kept; the
	// user simply can no longer log in.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// WithTx binds the store to a caller-managed transaction so several
	// writes commit or roll back together.
	WithTx(tx *sql.Tx) UserStore
}
