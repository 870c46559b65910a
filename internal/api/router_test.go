package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/surfreport/hub/internal/api/handlers"
)

func newTestRouter(metricsHandler http.Handler) http.Handler {
	return NewRouter(RouterParams{
		Reports:        handlers.NewReportsHandler(nil),
		Health:         handlers.NewHealthHandler(nil),
		MetricsHandler: metricsHandler,
		MaxBodyBytes:   1 << 10,
	})
}

func TestNewRouter(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		wantStatus  int
		wantProblem bool
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "ready without database", method: http.MethodGet, path: "/ready", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/v2/reports", wantStatus: http.StatusNotFound, wantProblem: true},
		{name: "metrics disabled", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusNotFound, wantProblem: true},
		{name: "wrong method", method: http.MethodPut, path: "/health", wantStatus: http.StatusMethodNotAllowed, wantProblem: true},
	}

	router := newTestRouter(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantProblem {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestNewRouter_ServesMetricsHandler(t *testing.T) {
	router := newTestRouter(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# HELP surf_requests_total"))
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "surf_requests_total")
}
