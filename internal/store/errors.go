package store

import (
	"errors"
	"fmt"
)

// Store errors form two small hierarchies rooted at ErrNotFound and
// ErrDuplicate, so callers can match either the generic class or the
// entity-specific sentinel with errors.Is.
var (
	// ErrNotFound is the root of all "does not exist" errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is the root of all uniqueness-violation errors.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity marks an entity that failed validation before the
	// write, or that references a row which does not exist. The wrapped
	// error carries the specifics.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed marks a transaction that could not commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrUserNotFound, ErrNoteNotFound, and ErrTaskNotFound narrow
	// ErrNotFound to their entity.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
	ErrNoteNotFound = fmt.Errorf("%w: note", ErrNotFound)
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrEmailExists narrows ErrDuplicate to the users.email unique
	// constraint.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError reports whether err is any "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any duplicate error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
