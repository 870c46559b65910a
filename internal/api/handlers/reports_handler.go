package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/surfreport/hub/internal/api/response"
	"github.com/surfreport/hub/internal/api/validation"
	"github.com/surfreport/hub/internal/models"
)

// ReportsService defines the report operations exposed over HTTP.
type ReportsService interface {
	GenerateReport(ctx context.Context, req *models.CreateReportRequest) (*models.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	DeleteReport(ctx context.Context, id uuid.UUID) error
	FindSimilarReports(ctx context.Context, id uuid.UUID, limit *int) (*models.SimilarReports, error)
	SubmitFeedback(ctx context.Context, reportID uuid.UUID, req *models.CreateFeedbackRequest) (*models.Feedback, error)
	GetEmbeddingStats(ctx context.Context) (*models.EmbeddingStats, error)
}

// ReportsHandler handles HTTP requests for surf reports.
type ReportsHandler struct {
	service ReportsService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(service ReportsService) *ReportsHandler {
	return &ReportsHandler{service: service}
}

// RegisterRoutes mounts the report routes on r.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/reports", h.Create)
	r.Route("/reports/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/similar", h.Similar)
		r.Post("/feedback", h.SubmitFeedback)
	})
	r.Get("/embeddings/stats", h.Stats)
}

// Create handles POST /v1/reports.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReportRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	report, err := h.service.GenerateReport(r.Context(), &req)
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusCreated, report)
}

// Get handles GET /v1/reports/{id}.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	report, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Delete handles DELETE /v1/reports/{id}.
func (h *ReportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReport(r.Context(), id); err != nil {
		response.RespondServiceError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Similar handles GET /v1/reports/{id}/similar?limit=.
func (h *ReportsHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	var filter models.SimilarReportsFilter
	if err := validation.ValidateAndDecodeQueryParams(r, &filter); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	similar, err := h.service.FindSimilarReports(r.Context(), id, filter.Limit)
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, similar)
}

// SubmitFeedback handles POST /v1/reports/{id}/feedback.
func (h *ReportsHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	var req models.CreateFeedbackRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	fb, err := h.service.SubmitFeedback(r.Context(), id, &req)
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusCreated, fb)
}

// Stats handles GET /v1/embeddings/stats.
func (h *ReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetEmbeddingStats(r.Context())
	if err != nil {
		response.RespondServiceError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, stats)
}

func reportID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid UUID format")

		return uuid.Nil, false
	}

	return id, true
}
