// Package api assembles the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/surfreport/hub/internal/api/handlers"
	"github.com/surfreport/hub/internal/api/middleware"
	"github.com/surfreport/hub/internal/api/response"
	"github.com/surfreport/hub/internal/observability"
)

// RouterParams configures NewRouter. Metrics and MetricsHandler may be nil.
type RouterParams struct {
	Reports        *handlers.ReportsHandler
	Health         *handlers.HealthHandler
	Metrics        observability.APIMetrics
	MetricsHandler http.Handler
	MaxBodyBytes   int64
}

// NewRouter builds the chi router: /health, /ready and optionally /metrics at the root, the
// report API under /v1.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Metrics(p.Metrics))

	var recorder middleware.RequestBodyTooLargeRecorder
	if p.Metrics != nil {
		recorder = p.Metrics
	}

	r.Use(middleware.MaxBody(p.MaxBodyBytes, recorder))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.RespondNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "method not allowed for this route")
	})

	r.Get("/health", p.Health.Check)
	r.Get("/ready", p.Health.Ready)

	if p.MetricsHandler != nil {
		r.Handle("/metrics", p.MetricsHandler)
	}

	r.Route("/v1", p.Reports.RegisterRoutes)

	return r
}
