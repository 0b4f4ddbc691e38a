package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companion-app/companion-api/internal/config"
	"github.com/companion-app/companion-api/internal/service"
	"github.com/companion-app/companion-api/internal/service/auth"
	"github.com/companion-app/companion-api/internal/task"
)

// emptyTaskService satisfies service.TaskService for routing tests; only
// ListTasks is exercised.
type emptyTaskService struct{}

var _ service.TaskService = emptyTaskService{}

func (emptyTaskService) ListTasks(ctx context.Context, userID uuid.UUID, status task.TaskStatus, limit int) ([]*task.Record, error) {
	return nil, nil
}

func (emptyTaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*task.Record, error) {
	return nil, nil
}

func (emptyTaskService) CancelTask(ctx context.Context, userID, taskID uuid.UUID) error {
	return nil
}

func newRouterTestApp(t *testing.T, requestsPerSecond float64, burst int) *application {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:                   "router-test-secret-0123456789abcdef",
			TokenLifetimeMinutes:        5,
			RefreshTokenLifetimeMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: requestsPerSecond,
			Burst:             burst,
		},
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)

	return &application{
		config:      cfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		jwtService:  jwtService,
		taskService: emptyTaskService{},
	}
}

func bearerToken(t *testing.T, app *application, userID uuid.UUID) string {
	t.Helper()
	token, err := app.jwtService.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterRateLimitKeyedByUser(t *testing.T) {
	t.Parallel()

	// Burst of 1: a shared-key limiter would reject the second request.
	app := newRouterTestApp(t, 1, 1)
	router := app.setupRouter()

	alice := bearerToken(t, app, uuid.New())
	bob := bearerToken(t, app, uuid.New())

	// Two different users behind the same IP each get their own bucket.
	for _, authz := range []string{alice, bob} {
		req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
		req.RemoteAddr = "203.0.113.9:4444"
		req.Header.Set("Authorization", authz)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// The same user exhausting the burst is rejected.
	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	req.Header.Set("Authorization", alice)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouterRateLimitAnonymousKeyedByIP(t *testing.T) {
	t.Parallel()

	app := newRouterTestApp(t, 1, 1)
	router := app.setupRouter()

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	first := send("198.51.100.7:1000")
	assert.NotEqual(t, http.StatusTooManyRequests, first)

	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.7:1001"),
		"same IP past the burst must be throttled")
	assert.NotEqual(t, http.StatusTooManyRequests, send("198.51.100.8:1000"),
		"a different IP gets its own bucket")
}

func TestRouterUnauthenticatedRequestRejected(t *testing.T) {
	t.Parallel()

	app := newRouterTestApp(t, 100, 100)
	router := app.setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
