// Package acquisition fetches every forecast source for a point concurrently, aligns them into one
// combined series and degrades the horizon when a full acquisition fails.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/surfreport/hub/internal/forecast"
	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/observability"
)

// MaxHorizonDays is the largest horizon the forecast sources serve.
const MaxHorizonDays = 16

// Fetcher retrieves one source's raw series. *forecast.Client implements it.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context, point models.Point, horizonDays int) (models.RawSeries, error)
}

// Result is a combined series together with the horizon that produced it.
type Result struct {
	Series      models.CombinedSeries
	HorizonDays int
}

// Degraded reports whether a smaller horizon than requested was used.
func (r Result) Degraded(requested int) bool {
	return r.HorizonDays < requested
}

// Service implements the weather acquisition pipeline.
type Service struct {
	fetchers  []Fetcher
	fallbacks []int
	logger    *slog.Logger
	metrics   observability.ForecastMetrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records degradation steps.
func WithMetrics(metrics observability.ForecastMetrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService creates a Service. The first fetcher is the canonical time axis. fallbackHorizons
// must be strictly decreasing.
func NewService(fetchers []Fetcher, fallbackHorizons []int, opts ...Option) *Service {
	s := &Service{
		fetchers:  fetchers,
		fallbacks: fallbackHorizons,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchCombined acquires all sources for horizonDays. When that fails, it walks the fallback
// horizons smaller than horizonDays and returns the first success. If every candidate fails, the
// error from the requested horizon is returned as *huberrors.AcquisitionFailedError.
func (s *Service) FetchCombined(ctx context.Context, point models.Point, horizonDays int) (Result, error) {
	if horizonDays < 1 || horizonDays > MaxHorizonDays {
		return Result{}, huberrors.NewValidationError("horizon_days",
			fmt.Sprintf("must be between 1 and %d", MaxHorizonDays))
	}

	if len(s.fetchers) == 0 {
		return Result{}, errors.New("acquisition: no forecast sources configured")
	}

	series, originalErr := s.fetchAll(ctx, point, horizonDays)
	if originalErr == nil {
		return Result{Series: series, HorizonDays: horizonDays}, nil
	}

	s.logger.WarnContext(ctx, "weather acquisition failed, degrading horizon",
		"operation", "acquisition.fetch_combined",
		"horizon_days", horizonDays,
		"error", originalErr,
	)

	for _, candidate := range s.fallbacks {
		if candidate >= horizonDays || candidate < 1 {
			continue
		}

		if ctx.Err() != nil {
			break
		}

		if s.metrics != nil {
			s.metrics.RecordDegradation(ctx, candidate)
		}

		series, err := s.fetchAll(ctx, point, candidate)
		if err == nil {
			s.logger.InfoContext(ctx, "weather acquisition succeeded with degraded horizon",
				"operation", "acquisition.fetch_combined",
				"requested_horizon_days", horizonDays,
				"horizon_days", candidate,
				"hours", series.Len(),
			)

			return Result{Series: series, HorizonDays: candidate}, nil
		}

		s.logger.WarnContext(ctx, "degraded weather acquisition failed",
			"operation", "acquisition.fetch_combined",
			"horizon_days", candidate,
			"error", err,
		)
	}

	return Result{}, huberrors.NewAcquisitionFailedError(Describe(originalErr), horizonDays, originalErr)
}

// fetchAll fetches every source concurrently and waits for all of them. A failed source does not
// cancel the others.
func (s *Service) fetchAll(ctx context.Context, point models.Point, horizonDays int) (models.CombinedSeries, error) {
	results := make([]models.RawSeries, len(s.fetchers))
	errs := make([]error, len(s.fetchers))

	var g errgroup.Group

	for i, f := range s.fetchers {
		g.Go(func() error {
			results[i], errs[i] = f.Fetch(ctx, point, horizonDays)

			// Do not propagate: the remaining sources keep their own retry budget.
			return nil
		})
	}

	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return models.CombinedSeries{}, fmt.Errorf("fetch %s: %w", s.fetchers[i].Source(), err)
		}
	}

	return Merge(results)
}

// Merge aligns sources to their shortest common length. Time comes from the first source; when two
// sources carry the same variable, the earlier source wins.
func Merge(sources []models.RawSeries) (models.CombinedSeries, error) {
	if len(sources) == 0 {
		return models.CombinedSeries{}, errors.New("merge: no sources")
	}

	minLength := sources[0].Len()
	for _, src := range sources[1:] {
		minLength = min(minLength, src.Len())
	}

	combined := models.CombinedSeries{
		Sources: make([]string, 0, len(sources)),
		Time:    sources[0].Time[:minLength:minLength],
		Values:  make(map[string][]float64),
	}

	for _, src := range sources {
		combined.Sources = append(combined.Sources, src.Source)

		for name, values := range src.Values {
			if _, exists := combined.Values[name]; exists {
				continue
			}

			if len(values) < minLength {
				return models.CombinedSeries{}, fmt.Errorf("merge: %s.%s has %d values, want at least %d",
					src.Source, name, len(values), minLength)
			}

			combined.Values[name] = values[:minLength:minLength]
		}
	}

	return combined, nil
}

// Describe turns an acquisition error into a one-line cause, naming the source and the lowest-level
// network failure when one can be classified.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var unavailable *huberrors.SourceUnavailableError
	if errors.As(err, &unavailable) {
		detail := fmt.Sprintf("%s source: %s", unavailable.Source, unavailable.Class.Describe())
		if unavailable.StatusCode > 0 {
			detail += fmt.Sprintf(" (HTTP %d)", unavailable.StatusCode)
		}

		return detail
	}

	class, status := forecast.Classify(err)
	if class == huberrors.ClassUnknown {
		return err.Error()
	}

	if status > 0 {
		return fmt.Sprintf("%s (HTTP %d)", class.Describe(), status)
	}

	return class.Describe()
}
