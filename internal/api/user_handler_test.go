package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companion-app/companion-api/internal/service"
)

func TestUserHandler_GetProfile(t *testing.T) {
	user := testUser()

	t.Run("authenticated", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{user: user}, testLogger())

		req := authedRequest(http.MethodGet, "/users/me", "", user.ID, "")
		rec := httptest.NewRecorder()
		h.GetProfile(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, user.ID, resp.ID)
		assert.Equal(t, user.Email, resp.Email)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{}, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		rec := httptest.NewRecorder()
		h.GetProfile(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	user := testUser()

	t.Run("partial update forwarded to service", func(t *testing.T) {
		svc := &stubUserService{user: user}
		h := NewUserHandler(svc, testLogger())

		req := authedRequest(http.MethodPatch, "/users/me", `{"first_name":"Grace"}`, user.ID, "")
		rec := httptest.NewRecorder()
		h.UpdateProfile(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.lastUpdate)
		require.NotNil(t, svc.lastUpdate.FirstName)
		assert.Equal(t, "Grace", *svc.lastUpdate.FirstName)
		assert.Nil(t, svc.lastUpdate.LastName)
		assert.Nil(t, svc.lastUpdate.Email)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{}, testLogger())

		req := authedRequest(http.MethodPatch, "/users/me", `{"email":"nope"}`, user.ID, "")
		rec := httptest.NewRecorder()
		h.UpdateProfile(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_UpdatePassword(t *testing.T) {
	userID := uuid.New()

	t.Run("successful change", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{}, testLogger())

		req := authedRequest(http.MethodPut, "/users/me/password",
			`{"current_password":"correct-horse-battery","new_password":"brand-new-passphrase"}`, userID, "")
		rec := httptest.NewRecorder()
		h.UpdatePassword(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{err: service.ErrInvalidCredentials}, testLogger())

		req := authedRequest(http.MethodPut, "/users/me/password",
			`{"current_password":"wrong","new_password":"brand-new-passphrase"}`, userID, "")
		rec := httptest.NewRecorder()
		h.UpdatePassword(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("new password too short", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{}, testLogger())

		req := authedRequest(http.MethodPut, "/users/me/password",
			`{"current_password":"correct-horse-battery","new_password":"short"}`, userID, "")
		rec := httptest.NewRecorder()
		h.UpdatePassword(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_DeactivateAccount(t *testing.T) {
	userID := uuid.New()

	t.Run("regular account", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{}, testLogger())

		req := authedRequest(http.MethodDelete, "/users/me", "", userID, "")
		rec := httptest.NewRecorder()
		h.DeactivateAccount(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("protected admin account", func(t *testing.T) {
		h := NewUserHandler(&stubUserService{err: service.ErrProtectedAccount}, testLogger())

		req := authedRequest(http.MethodDelete, "/users/me", "", userID, "")
		rec := httptest.NewRecorder()
		h.DeactivateAccount(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "cannot be deactivated")
	})
}
