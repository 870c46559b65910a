package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/surfreport/hub/internal/api/response"
	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

// MockReportsService is a mock implementation of ReportsService
type MockReportsService struct {
	mock.Mock
}

func (m *MockReportsService) GenerateReport(ctx context.Context, req *models.CreateReportRequest) (*models.Report, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportsService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportsService) DeleteReport(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockReportsService) FindSimilarReports(ctx context.Context, id uuid.UUID, limit *int) (*models.SimilarReports, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SimilarReports), args.Error(1)
}

func (m *MockReportsService) SubmitFeedback(
	ctx context.Context, reportID uuid.UUID, req *models.CreateFeedbackRequest,
) (*models.Feedback, error) {
	args := m.Called(ctx, reportID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Feedback), args.Error(1)
}

func (m *MockReportsService) GetEmbeddingStats(ctx context.Context) (*models.EmbeddingStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.EmbeddingStats), args.Error(1)
}

func newTestRouter(svc ReportsService) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", NewReportsHandler(svc).RegisterRoutes)

	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) response.ProblemDetails {
	t.Helper()

	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func TestReportsHandler_Create(t *testing.T) {
	t.Run("creates report", func(t *testing.T) {
		svc := new(MockReportsService)
		report := &models.Report{ID: uuid.New(), SpotID: "biarritz", HorizonDays: 3, RequestedHorizonDays: 7, Text: "Fun waves."}

		svc.On("GenerateReport", mock.Anything, mock.MatchedBy(func(req *models.CreateReportRequest) bool {
			return req.SpotID == "biarritz" && req.Preferences != nil && req.Preferences.SkillLevel == "advanced"
		})).Return(report, nil)

		rec := do(t, newTestRouter(svc), http.MethodPost, "/v1/reports", map[string]any{
			"spot_id":     "biarritz",
			"preferences": map[string]any{"skill_level": "advanced"},
		})

		assert.Equal(t, http.StatusCreated, rec.Code)

		var got models.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, report.ID, got.ID)
		assert.Equal(t, 3, got.HorizonDays)
		svc.AssertExpectations(t)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		svc := new(MockReportsService)

		rec := do(t, newTestRouter(svc), http.MethodPost, "/v1/reports", `{"spot_id":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "GenerateReport", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockReportsService)), http.MethodPost, "/v1/reports",
			`{"spot_id":"biarritz","days":3}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation errors list fields", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockReportsService)), http.MethodPost, "/v1/reports", map[string]any{
			"spot_id":      "Biarritz Beach",
			"horizon_days": 30,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		problem := decodeProblem(t, rec)
		assert.Equal(t, "Validation Error", problem.Title)
		require.Len(t, problem.Errors, 2)
		assert.Contains(t, problem.Detail, "spot_id")
		assert.Contains(t, problem.Detail, "horizon_days must be at most 16")
	})

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown spot", huberrors.NewNotFoundError("spot", "spot atlantis not found"), http.StatusNotFound},
		{"acquisition failed", huberrors.NewAcquisitionFailedError("connection refused", 1, errors.New("dial")), http.StatusBadGateway},
		{"text generation failed", huberrors.NewTextGenerationFailedError("openai", errors.New("secret upstream detail")), http.StatusBadGateway},
		{"service validation", huberrors.NewValidationError("horizon_days", "must be between 1 and 16"), http.StatusBadRequest},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReportsService)
			svc.On("GenerateReport", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(t, newTestRouter(svc), http.MethodPost, "/v1/reports", map[string]any{"spot_id": "atlantis"})

			assert.Equal(t, tt.status, rec.Code)

			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.status, problem.Status)
			assert.NotContains(t, problem.Detail, "secret upstream detail")
			assert.NotContains(t, problem.Detail, "db down")
		})
	}
}

func TestReportsHandler_GetAndDelete(t *testing.T) {
	id := uuid.New()

	t.Run("get", func(t *testing.T) {
		svc := new(MockReportsService)
		svc.On("GetReport", mock.Anything, id).Return(&models.Report{ID: id}, nil)

		rec := do(t, newTestRouter(svc), http.MethodGet, "/v1/reports/"+id.String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("get not found", func(t *testing.T) {
		svc := new(MockReportsService)
		svc.On("GetReport", mock.Anything, id).Return(nil, huberrors.NewNotFoundError("report", "report not found"))

		rec := do(t, newTestRouter(svc), http.MethodGet, "/v1/reports/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockReportsService)), http.MethodGet, "/v1/reports/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockReportsService)
		svc.On("DeleteReport", mock.Anything, id).Return(nil)

		rec := do(t, newTestRouter(svc), http.MethodDelete, "/v1/reports/"+id.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestReportsHandler_Similar(t *testing.T) {
	id := uuid.New()

	t.Run("passes limit", func(t *testing.T) {
		svc := new(MockReportsService)
		result := &models.SimilarReports{
			Target:  &models.Report{ID: id},
			Similar: []models.SimilarityResult{{OwnerID: uuid.New(), Similarity: 0.5, Estimated: true}},
		}
		svc.On("FindSimilarReports", mock.Anything, id, mock.MatchedBy(func(limit *int) bool {
			return limit != nil && *limit == 3
		})).Return(result, nil)

		rec := do(t, newTestRouter(svc), http.MethodGet, "/v1/reports/"+id.String()+"/similar?limit=3", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.SimilarReports
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Similar, 1)
		assert.True(t, got.Similar[0].Estimated)
	})

	t.Run("default limit", func(t *testing.T) {
		svc := new(MockReportsService)
		svc.On("FindSimilarReports", mock.Anything, id, (*int)(nil)).
			Return(&models.SimilarReports{Target: &models.Report{ID: id}, Similar: []models.SimilarityResult{}}, nil)

		rec := do(t, newTestRouter(svc), http.MethodGet, "/v1/reports/"+id.String()+"/similar", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("limit out of range", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockReportsService)), http.MethodGet, "/v1/reports/"+id.String()+"/similar?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit not a number", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockReportsService)), http.MethodGet, "/v1/reports/"+id.String()+"/similar?limit=many", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReportsHandler_SubmitFeedback(t *testing.T) {
	id := uuid.New()

	t.Run("stores rating", func(t *testing.T) {
		svc := new(MockReportsService)
		svc.On("SubmitFeedback", mock.Anything, id, mock.MatchedBy(func(req *models.CreateFeedbackRequest) bool {
			return req.Rating == 5 && req.Comment != nil && *req.Comment == "firing"
		})).Return(&models.Feedback{ID: uuid.New(), ReportID: id, Rating: 5}, nil)

		rec := do(t, newTestRouter(svc), http.MethodPost, "/v1/reports/"+id.String()+"/feedback",
			map[string]any{"rating": 5, "comment": "firing"})
		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rating out of range", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockReportsService)), http.MethodPost, "/v1/reports/"+id.String()+"/feedback",
			map[string]any{"rating": 6})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown report", func(t *testing.T) {
		svc := new(MockReportsService)
		svc.On("SubmitFeedback", mock.Anything, id, mock.Anything).
			Return(nil, huberrors.NewNotFoundError("report", "report not found"))

		rec := do(t, newTestRouter(svc), http.MethodPost, "/v1/reports/"+id.String()+"/feedback",
			map[string]any{"rating": 3})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReportsHandler_Stats(t *testing.T) {
	svc := new(MockReportsService)
	svc.On("GetEmbeddingStats", mock.Anything).
		Return(&models.EmbeddingStats{Total: 3, WithFeedback: 2, AverageRating: 4.25, DistinctSpotsCovered: 1}, nil)

	rec := do(t, newTestRouter(svc), http.MethodGet, "/v1/embeddings/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"with_feedback":2,"average_rating":4.25,"distinct_spots_covered":1}`, rec.Body.String())
}
