package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"

	"github.com/surfreport/hub/internal/acquisition"
	"github.com/surfreport/hub/internal/conditions"
	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/observability"
	"github.com/surfreport/hub/internal/similarity"
	"github.com/surfreport/hub/internal/textgen"
)

// ReportsRepository is the report persistence used by ReportService.
type ReportsRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListIDsMissingSimilarity(ctx context.Context) ([]uuid.UUID, error)
}

// FeedbackRepository stores ratings and recomputes their aggregate.
type FeedbackRepository interface {
	CreateAndAggregate(ctx context.Context, fb *models.Feedback) (models.FeedbackAggregate, error)
	Aggregate(ctx context.Context, reportID uuid.UUID) (models.FeedbackAggregate, error)
}

// SpotResolver maps a spot ID to its name and coordinates.
type SpotResolver interface {
	Resolve(ctx context.Context, id string) (models.Spot, error)
}

// Acquirer fetches the combined forecast series for a point.
type Acquirer interface {
	FetchCombined(ctx context.Context, point models.Point, horizonDays int) (acquisition.Result, error)
}

// Embedder turns a fingerprint into a fixed-length vector. It never fails.
type Embedder interface {
	Embed(ctx context.Context, fp models.ConditionFingerprint) models.Embedding
}

// SimilarityIndex is the similarity index used by ReportService.
type SimilarityIndex interface {
	Replace(ctx context.Context, ownerID uuid.UUID, build func(ctx context.Context) (models.SimilarityRecord, error)) error
	ApplyFeedback(
		ctx context.Context, ownerID uuid.UUID, compute func(ctx context.Context) (models.FeedbackAggregate, error),
	) (models.FeedbackAggregate, error)
	Get(ctx context.Context, ownerID uuid.UUID) (models.SimilarityRecord, error)
	DeleteOwner(ctx context.Context, ownerID uuid.UUID, deleteOwner func(ctx context.Context) error) error
	Query(ctx context.Context, q models.SimilarityQuery) ([]models.SimilarityResult, error)
	Stats(ctx context.Context) (models.EmbeddingStats, error)
}

// Enrichment outcomes, also used as metric labels.
const (
	enrichmentSuccess     = "success"
	enrichmentRetry       = "retry"
	enrichmentFailedFinal = "failed_final"
	enrichmentSkipped     = "skipped"
)

const (
	defaultSimilarLimit = 5

	// inlineEnrichmentTimeout bounds the best-effort enrichment after a report is stored. It runs
	// detached from the request so a client disconnect does not drop the similarity record.
	inlineEnrichmentTimeout = time.Minute
)

// ReportServiceParams configures ReportService. Inserter, Metrics, Clock and Logger may be nil.
type ReportServiceParams struct {
	Spots       SpotResolver
	Acquisition Acquirer
	Generator   textgen.Generator
	Reports     ReportsRepository
	Feedback    FeedbackRepository
	Embedder    Embedder
	Index       SimilarityIndex

	// Inserter queues enrichment retries. Nil disables the queue; failures are only logged.
	Inserter              EnrichmentInserter
	EnrichmentMaxAttempts int

	DefaultHorizonDays int
	MinSimilarity      float64
	DefaultLimit       int

	Metrics observability.EnrichmentMetrics
	Clock   clockwork.Clock
	Logger  *slog.Logger
}

// ReportService generates surf reports and keeps the similarity index in step with them.
type ReportService struct {
	spots       SpotResolver
	acquisition Acquirer
	generator   textgen.Generator
	reports     ReportsRepository
	feedback    FeedbackRepository
	embedder    Embedder
	index       SimilarityIndex

	inserter    EnrichmentInserter
	maxAttempts int

	defaultHorizon int
	minSimilarity  float64
	defaultLimit   int

	metrics observability.EnrichmentMetrics
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewReportService creates a ReportService.
func NewReportService(p ReportServiceParams) *ReportService {
	s := &ReportService{
		spots:          p.Spots,
		acquisition:    p.Acquisition,
		generator:      p.Generator,
		reports:        p.Reports,
		feedback:       p.Feedback,
		embedder:       p.Embedder,
		index:          p.Index,
		inserter:       p.Inserter,
		maxAttempts:    p.EnrichmentMaxAttempts,
		defaultHorizon: p.DefaultHorizonDays,
		minSimilarity:  p.MinSimilarity,
		defaultLimit:   p.DefaultLimit,
		metrics:        p.Metrics,
		clock:          p.Clock,
		logger:         p.Logger,
	}

	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.defaultHorizon <= 0 {
		s.defaultHorizon = 7
	}

	if s.defaultLimit <= 0 {
		s.defaultLimit = defaultSimilarLimit
	}

	return s
}

// SetInserter sets the enrichment queue after construction; the River client needs the worker,
// and the worker needs this service.
func (s *ReportService) SetInserter(inserter EnrichmentInserter) {
	s.inserter = inserter
}

// GenerateReport acquires the forecast for the spot, summarizes it, has the generator write the
// text and persists the report. Acquisition and text generation failures abort the call. The
// similarity record is written afterwards on a best-effort basis and never fails the report.
func (s *ReportService) GenerateReport(ctx context.Context, req *models.CreateReportRequest) (*models.Report, error) {
	horizon := s.defaultHorizon
	if req.HorizonDays != nil {
		horizon = *req.HorizonDays
	}

	if horizon < 1 || horizon > acquisition.MaxHorizonDays {
		return nil, huberrors.NewValidationError("horizon_days",
			fmt.Sprintf("must be between 1 and %d", acquisition.MaxHorizonDays))
	}

	spot, err := s.spots.Resolve(ctx, req.SpotID)
	if err != nil {
		return nil, fmt.Errorf("resolve spot: %w", err)
	}

	result, err := s.acquisition.FetchCombined(ctx, spot.Point, horizon)
	if err != nil {
		s.logger.Error("report: acquisition failed", "spot_id", spot.ID, "horizon_days", horizon, "error", err)

		return nil, fmt.Errorf("acquire forecast: %w", err)
	}

	summary := conditions.Summarize(result.Series)
	fp := conditions.Fingerprint(summary)

	text, err := s.generator.Generate(ctx, textgen.Request{
		SpotName:    spot.Name,
		HorizonDays: result.HorizonDays,
		Summary:     summary,
		Fingerprint: fp,
		Preferences: req.Preferences,
	})
	if err != nil {
		s.logger.Error("report: text generation failed", "spot_id", spot.ID, "error", err)

		return nil, fmt.Errorf("generate report text: %w", err)
	}

	report := &models.Report{
		ID:                   uuid.New(),
		SpotID:               spot.ID,
		SpotName:             spot.Name,
		Point:                spot.Point,
		HorizonDays:          result.HorizonDays,
		RequestedHorizonDays: horizon,
		Summary:              summary,
		Text:                 text,
		Preferences:          req.Preferences,
		CreatedAt:            s.clock.Now().UTC(),
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	s.logger.Info("report: created",
		"report_id", report.ID, "spot_id", spot.ID,
		"horizon_days", report.HorizonDays, "requested_horizon_days", horizon)

	s.enrichInline(ctx, report, fp)

	return report, nil
}

// enrichInline writes the similarity record right after the report is stored. On failure the
// work is queued for the enrichment worker when a queue is configured.
func (s *ReportService) enrichInline(ctx context.Context, report *models.Report, fp models.ConditionFingerprint) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inlineEnrichmentTimeout)
	defer cancel()

	start := s.clock.Now()

	err := s.writeRecord(ctx, report, fp)

	switch {
	case err == nil:
		s.recordEnrichment(ctx, enrichmentSuccess, start)

		return
	case errors.Is(err, huberrors.ErrNotFound):
		s.logger.InfoContext(ctx, "report: deleted before enrichment", "report_id", report.ID)
		s.recordEnrichment(ctx, enrichmentSkipped, start)

		return
	}

	s.logger.Error("report: enrichment failed", "report_id", report.ID, "error", err)

	if s.enqueueEnrichment(ctx, report.ID) {
		s.recordEnrichment(ctx, enrichmentRetry, start)

		return
	}

	s.recordEnrichment(ctx, enrichmentFailedFinal, start)
}

// EnrichReport rebuilds the similarity record of a stored report from its summary.
func (s *ReportService) EnrichReport(ctx context.Context, reportID uuid.UUID) error {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	return s.writeRecord(ctx, report, conditions.Fingerprint(report.Summary))
}

// writeRecord embeds fp and upserts the report's record. The report is looked up again under the
// owner lock, so a report deleted while the embedding ran gets no record.
func (s *ReportService) writeRecord(ctx context.Context, report *models.Report, fp models.ConditionFingerprint) error {
	embedding := s.embedder.Embed(ctx, fp)

	err := s.index.Replace(ctx, report.ID, func(ctx context.Context) (models.SimilarityRecord, error) {
		if _, err := s.reports.GetByID(ctx, report.ID); err != nil {
			return models.SimilarityRecord{}, fmt.Errorf("recheck report: %w", err)
		}

		agg, err := s.feedback.Aggregate(ctx, report.ID)
		if err != nil {
			return models.SimilarityRecord{}, fmt.Errorf("load feedback aggregate: %w", err)
		}

		return buildRecord(report, fp, embedding, agg), nil
	})
	if err != nil {
		return fmt.Errorf("write similarity record: %w", err)
	}

	return nil
}

func buildRecord(
	report *models.Report, fp models.ConditionFingerprint, embedding models.Embedding, agg models.FeedbackAggregate,
) models.SimilarityRecord {
	conditionsDate := report.CreatedAt
	if len(report.Summary.Hourly) > 0 {
		conditionsDate = report.Summary.Hourly[0].Time
	}

	return models.SimilarityRecord{
		OwnerID:        report.ID,
		SpotID:         report.SpotID,
		Embedding:      embedding.Vector,
		Strategy:       embedding.Strategy,
		WaveHeight:     fp.WaveHeightAvg,
		WavePeriod:     fp.WavePeriodAvg,
		WindSpeed:      fp.WindSpeedAvg,
		WindDirection:  fp.WindDirection,
		SwellDirection: fp.SwellDirection,
		TideState:      fp.TideState,
		AverageRating:  agg.AverageRating,
		FeedbackCount:  agg.FeedbackCount,
		ConditionsDate: conditionsDate,
		CreatedAt:      report.CreatedAt,
	}
}

// enqueueEnrichment queues an enrichment job and reports whether it was queued.
func (s *ReportService) enqueueEnrichment(ctx context.Context, reportID uuid.UUID) bool {
	if s.inserter == nil {
		return false
	}

	opts := &river.InsertOpts{
		Queue:       EnrichmentQueueName,
		MaxAttempts: s.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}

	if _, err := s.inserter.Insert(ctx, ReportEnrichmentArgs{ReportID: reportID}, opts); err != nil {
		s.logger.Error("report: enqueue enrichment failed", "report_id", reportID, "error", err)

		return false
	}

	if s.metrics != nil {
		s.metrics.RecordJobsEnqueued(ctx, 1)
	}

	return true
}

// GetReport returns one report.
func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	return report, nil
}

// DeleteReport removes a report with its feedback and similarity record. Both deletes run under
// the owner lock so an enrichment in flight cannot write the record back.
func (s *ReportService) DeleteReport(ctx context.Context, id uuid.UUID) error {
	reportDeleted := false

	// The postgres store cascades; the memory store needs the explicit record delete.
	err := s.index.DeleteOwner(ctx, id, func(ctx context.Context) error {
		if err := s.reports.Delete(ctx, id); err != nil {
			return err
		}

		reportDeleted = true

		return nil
	})
	if err != nil {
		if !reportDeleted {
			return fmt.Errorf("delete report: %w", err)
		}

		s.logger.WarnContext(ctx, "report: similarity record delete failed", "report_id", id, "error", err)
	}

	return nil
}

// FindSimilarReports returns well-rated reports of the same spot whose conditions resemble the
// target's. The target itself is never among the results. A report that has no similarity record
// yet is compared by embedding its summary on the spot.
func (s *ReportService) FindSimilarReports(ctx context.Context, id uuid.UUID, limit *int) (*models.SimilarReports, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	n := s.defaultLimit
	if limit != nil {
		n = *limit
	}

	var target []float32

	rec, err := s.index.Get(ctx, id)

	switch {
	case err == nil:
		target = rec.Embedding
	case errors.Is(err, similarity.ErrRecordNotFound):
		target = s.embedder.Embed(ctx, conditions.Fingerprint(report.Summary)).Vector
	default:
		return nil, fmt.Errorf("get similarity record: %w", err)
	}

	results, err := s.index.Query(ctx, models.SimilarityQuery{
		Target:        target,
		SpotID:        report.SpotID,
		MinSimilarity: s.minSimilarity,
		Limit:         n,
		ExcludeOwner:  &report.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("query similar reports: %w", err)
	}

	return &models.SimilarReports{Target: report, Similar: results}, nil
}

// GetEmbeddingStats summarizes the similarity index.
func (s *ReportService) GetEmbeddingStats(ctx context.Context) (*models.EmbeddingStats, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedding stats: %w", err)
	}

	return &stats, nil
}

// SubmitFeedback stores a rating and refreshes the report's similarity aggregate. Once the rating
// is stored the call succeeds; a failed index refresh is logged and queued for the worker.
func (s *ReportService) SubmitFeedback(
	ctx context.Context, reportID uuid.UUID, req *models.CreateFeedbackRequest,
) (*models.Feedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, huberrors.NewValidationError("rating", "must be between 1 and 5")
	}

	fb := &models.Feedback{
		ID:        uuid.New(),
		ReportID:  reportID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: s.clock.Now().UTC(),
	}

	stored := false

	agg, err := s.index.ApplyFeedback(ctx, reportID, func(ctx context.Context) (models.FeedbackAggregate, error) {
		agg, err := s.feedback.CreateAndAggregate(ctx, fb)
		if err != nil {
			return models.FeedbackAggregate{}, err
		}

		stored = true

		return agg, nil
	})
	if err != nil {
		if !stored {
			return nil, fmt.Errorf("create feedback: %w", err)
		}

		s.logger.Error("feedback: similarity aggregate update failed", "report_id", reportID, "error", err)
		s.enqueueEnrichment(ctx, reportID)
	}

	s.logger.Info("feedback: stored",
		"report_id", reportID, "rating", fb.Rating,
		"average_rating", agg.AverageRating, "feedback_count", agg.FeedbackCount)

	return fb, nil
}

// BackfillEnrichment queues an enrichment job for every report without a similarity record.
func (s *ReportService) BackfillEnrichment(ctx context.Context) (int, error) {
	if s.inserter == nil {
		return 0, errors.New("enrichment queue is not configured")
	}

	ids, err := s.reports.ListIDsMissingSimilarity(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reports for backfill: %w", err)
	}

	enqueued := 0

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return enqueued, fmt.Errorf("backfill interrupted: %w", err)
		}

		if s.enqueueEnrichment(ctx, id) {
			enqueued++
		}
	}

	return enqueued, nil
}

func (s *ReportService) recordEnrichment(ctx context.Context, status string, start time.Time) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordOutcome(ctx, status)
	s.metrics.RecordDuration(ctx, status, s.clock.Since(start))
}
