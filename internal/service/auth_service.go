package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/service/auth"
	"github.com/companion-app/companion-api/internal/store"
)

// TokenPair bundles the access and refresh tokens returned on successful
// authentication.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides registration, login, and token refresh.
type AuthService interface {
	// Register creates a new user account and returns the user together
	// with an initial token pair.
	// Returns store.ErrEmailExists if the email is already taken.
	Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, *TokenPair, error)

	// Login authenticates a user by email and password.
	// Returns ErrInvalidCredentials for unknown emails and wrong passwords
	// alike, and ErrAccountInactive for deactivated accounts.
	Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	// Returns auth token errors for invalid or expired tokens, and
	// ErrAccountInactive if the user has been deactivated since.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// AuthServiceImpl implements the AuthService interface.
type AuthServiceImpl struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	db               *sql.DB
	logger           *slog.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService creates a new AuthService.
func NewAuthService(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	db *sql.DB,
	logger *slog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		db:               db,
		logger:           logger.With("component", "auth_service"),
	}
}

// Register creates a new user account and issues an initial token pair.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, *TokenPair, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		s.logger.Debug("registration rejected by domain validation",
			"error", err)
		return nil, nil, err
	}
	user.FirstName = firstName
	user.LastName = lastName

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to register with existing email")
		} else {
			s.logger.Error("failed to save user during registration",
				"error", err)
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered",
		"user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and issues a token pair.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("login attempt for unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user during login",
			"error", err)
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.passwordVerifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login attempt with wrong password",
			"user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Debug("login attempt for deactivated account",
			"user_id", user.ID)
		return nil, nil, ErrAccountInactive
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in",
		"user_id", user.ID)
	return user, tokens, nil
}

// Refresh validates a refresh token and issues a fresh token pair.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		s.logger.Debug("refresh token rejected",
			"error", err)
		return nil, err
	}

	// The user may have been deactivated after the token was issued.
	user, err := s.userStore.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		s.logger.Error("failed to look up user during token refresh",
			"error", err,
			"user_id", claims.UserID)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsActive {
		s.logger.Debug("refresh attempt for deactivated account",
			"user_id", user.ID)
		return nil, ErrAccountInactive
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("token pair refreshed",
		"user_id", user.ID)
	return tokens, nil
}

// issueTokens generates an access and refresh token pair for the user.
func (s *AuthServiceImpl) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateToken(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to generate access token",
			"error", err,
			"user_id", user.ID)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to generate refresh token",
			"error", err,
			"user_id", user.ID)
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
