package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/companion-app/companion-api/internal/api/shared"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"), "burst of 2 allows a second request")
	assert.False(t, rl.Allow("client-a"), "third immediate request exceeds the burst")

	assert.True(t, rl.Allow("client-b"), "limits are independent per client")
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.RemoteAddr = "203.0.113.9:4444"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}

func TestClientKey(t *testing.T) {
	t.Run("anonymous request keyed by IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		assert.Equal(t, "ip:198.51.100.7", clientKey(req))
	})

	t.Run("authenticated request keyed by user ID", func(t *testing.T) {
		userID := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
		assert.Equal(t, "user:"+userID.String(), clientKey(req))
	})
}

func TestEvictIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("stale-client")

	rl.evictIdle(time.Now().Add(time.Minute))

	rl.mu.Lock()
	_, ok := rl.clients["stale-client"]
	rl.mu.Unlock()
	assert.False(t, ok, "idle client should have been evicted")
}
