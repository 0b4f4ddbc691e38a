package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/service"
	"github.com/companion-app/companion-api/internal/service/auth"
	"github.com/companion-app/companion-api/internal/store"
)

func newAuthService(t *testing.T) (*service.AuthServiceImpl, *fakeUserStore) {
	t.Helper()
	userStore := newFakeUserStore()
	svc := service.NewAuthService(userStore, &fakeJWTService{}, fakeVerifier{}, noopDB(), testLogger())
	return svc, userStore
}

// seedUser registers a user directly through the fake store.
func seedUser(t *testing.T, userStore *fakeUserStore, email, password string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email, password)
	require.NoError(t, err)
	require.NoError(t, userStore.Create(context.Background(), user))
	return user
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and issues tokens", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)

		user, tokens, err := svc.Register(context.Background(), "new@example.com", "correct-horse-battery", "Ada", "Lovelace")
		require.NoError(t, err)
		require.NotNil(t, user)
		require.NotNil(t, tokens)

		assert.Equal(t, "access:"+user.ID.String(), tokens.AccessToken)
		assert.Equal(t, "refresh:"+user.ID.String(), tokens.RefreshToken)
		assert.Equal(t, "Ada", user.FirstName)
		assert.Equal(t, "Lovelace", user.LastName)
		assert.Empty(t, user.Password, "plaintext password should be cleared after storage")

		stored, err := userStore.GetByEmail(context.Background(), "new@example.com")
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, _, err := svc.Register(context.Background(), "new@example.com", "short", "", "")
		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)
		seedUser(t, userStore, "taken@example.com", "correct-horse-battery")

		_, _, err := svc.Register(context.Background(), "taken@example.com", "correct-horse-battery", "", "")
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)
		seeded := seedUser(t, userStore, "user@example.com", "correct-horse-battery")

		user, tokens, err := svc.Login(context.Background(), "user@example.com", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, user.ID)
		assert.Equal(t, "access:"+seeded.ID.String(), tokens.AccessToken)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, _, err := svc.Login(context.Background(), "nobody@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)
		seedUser(t, userStore, "user@example.com", "correct-horse-battery")

		_, _, err := svc.Login(context.Background(), "user@example.com", "wrong-password-entirely")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)
		seeded := seedUser(t, userStore, "user@example.com", "correct-horse-battery")
		require.NoError(t, userStore.Deactivate(context.Background(), seeded.ID))

		_, _, err := svc.Login(context.Background(), "user@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, service.ErrAccountInactive)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("valid refresh token", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)
		seeded := seedUser(t, userStore, "user@example.com", "correct-horse-battery")

		tokens, err := svc.Refresh(context.Background(), "refresh:"+seeded.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "access:"+seeded.ID.String(), tokens.AccessToken)
		assert.Equal(t, "refresh:"+seeded.ID.String(), tokens.RefreshToken)
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, err := svc.Refresh(context.Background(), "garbage")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})

	t.Run("token for deleted user", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, err := svc.Refresh(context.Background(), "refresh:"+uuid.New().String())
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})

	t.Run("token for deactivated user", func(t *testing.T) {
		t.Parallel()
		svc, userStore := newAuthService(t)
		seeded := seedUser(t, userStore, "user@example.com", "correct-horse-battery")
		require.NoError(t, userStore.Deactivate(context.Background(), seeded.ID))

		_, err := svc.Refresh(context.Background(), "refresh:"+seeded.ID.String())
		assert.ErrorIs(t, err, service.ErrAccountInactive)
	})
}
