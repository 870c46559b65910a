package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/surfreport/hub/internal/api/response"
)

// Pinger reports whether a dependency is reachable (e.g. *pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// HealthHandler handles liveness and readiness checks.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. db may be nil when no database is used.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}

// Ready handles GET /ready: 503 while the database is unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "readiness: database ping failed", "error", err)
			response.RespondError(w, http.StatusServiceUnavailable, "Service Unavailable", "database unreachable")

			return
		}
	}

	h.Check(w, r)
}
