package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/service/auth"
	"github.com/companion-app/companion-api/internal/store"
)

// ProfileUpdate carries the optional profile fields a user may change.
// Nil pointers mean "leave unchanged".
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// UserService provides user profile operations.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// UpdateProfile applies the given profile changes to the user.
	// Returns store.ErrEmailExists when changing to a taken email.
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error)

	// UpdatePassword changes the user's password after verifying the
	// current one. Returns ErrInvalidCredentials if the current password
	// is wrong.
	UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error

	// DeactivateUser soft-deletes the user's account.
	// Admin accounts cannot be deactivated; returns ErrProtectedAccount.
	DeactivateUser(ctx context.Context, userID uuid.UUID) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore        store.UserStore
	passwordVerifier auth.PasswordVerifier
	db               *sql.DB
	logger           *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, passwordVerifier auth.PasswordVerifier, db *sql.DB, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		userStore:        userStore,
		passwordVerifier: passwordVerifier,
		db:               db,
		logger:           logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found",
				"user_id", userID)
			return nil, err
		}
		s.logger.Error("failed to retrieve user",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	return user, nil
}

// UpdateProfile applies profile changes within a transaction, following the
// read-modify-write pattern so unchanged fields are preserved.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	var updated *domain.User

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if update.FirstName != nil {
			user.FirstName = *update.FirstName
		}
		if update.LastName != nil {
			user.LastName = *update.LastName
		}
		if update.Email != nil {
			user.Email = *update.Email
		}

		if err := txStore.Update(ctx, user); err != nil {
			return err
		}

		updated = user
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			s.logger.Debug("user not found for profile update",
				"user_id", userID)
		case errors.Is(err, store.ErrEmailExists):
			s.logger.Debug("profile update to taken email",
				"user_id", userID)
		default:
			s.logger.Error("failed to update profile",
				"error", err,
				"user_id", userID)
		}
		return nil, err
	}

	s.logger.Info("profile updated",
		"user_id", userID)
	return updated, nil
}

// UpdatePassword verifies the current password and stores the new one.
// The store handles hashing when the plaintext Password field is set.
func (s *UserServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if err := s.passwordVerifier.Compare(user.HashedPassword, currentPassword); err != nil {
			return ErrInvalidCredentials
		}

		user.Password = newPassword
		return txStore.Update(ctx, user)
	})

	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Debug("password update with wrong current password",
				"user_id", userID)
		} else if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to update password",
				"error", err,
				"user_id", userID)
		}
		return err
	}

	s.logger.Info("password updated",
		"user_id", userID)
	return nil
}

// DeactivateUser clears the user's active flag. Admin accounts are refused
// so an admin cannot lock themselves out of the system.
func (s *UserServiceImpl) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if user.IsAdmin {
			return ErrProtectedAccount
		}

		return txStore.Deactivate(ctx, userID)
	})

	if err != nil {
		if errors.Is(err, ErrProtectedAccount) {
			s.logger.Warn("attempted to deactivate admin account",
				"user_id", userID)
		} else if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to deactivate user",
				"error", err,
				"user_id", userID)
		}
		return err
	}

	s.logger.Info("user account deactivated",
		"user_id", userID)
	return nil
}
