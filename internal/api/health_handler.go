package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/companion-app/companion-api/internal/api/shared"
	"github.com/companion-app/companion-api/internal/redact"
)

// readinessCheckTimeout bounds the database probe so a hung connection
// cannot stall the readiness endpoint.
const readinessCheckTimeout = 5 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler with the given dependencies.
func NewHealthHandler(db *sql.DB, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger.With("component", "health_handler"),
	}
}

// HealthStatus is the response body for health endpoints.
type HealthStatus struct {
	Status  string          `json:"status"`
	Service string          `json:"service"`
	Checks  map[string]bool `json:"checks,omitempty"`
}

// Health handles GET /health. It reports healthy whenever the process is
// serving requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthStatus{
		Status:  "healthy",
		Service: "companion-api",
	})
}

// Live handles GET /live, the liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthStatus{
		Status:  "alive",
		Service: "companion-api",
	})
}

// Ready handles GET /ready. It verifies the database is reachable and
// returns 503 until every dependency check passes.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
	defer cancel()

	checks := map[string]bool{"database": true}
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("readiness check failed",
			"check", "database",
			"error", redact.Error(err))
		checks["database"] = false
	}

	status := "ready"
	code := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = "not ready"
			code = http.StatusServiceUnavailable
			break
		}
	}

	shared.RespondWithJSON(w, r, code, HealthStatus{
		Status:  status,
		Service: "companion-api",
		Checks:  checks,
	})
}
