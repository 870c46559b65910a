// Package embeddings converts condition fingerprints into fixed-length unit vectors through an
// ordered cascade of strategies that ends in a deterministic projection.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
	"github.com/surfreport/hub/internal/observability"
	pkgembeddings "github.com/surfreport/hub/pkg/embeddings"
)

// Strategy names, also used as metric labels and stored on similarity records.
const (
	StrategyRemote     = "remote"
	StrategyLocal      = "local"
	StrategyProjection = "projection"
)

var (
	errZeroVector    = errors.New("embedding has zero magnitude")
	errNonFinite     = errors.New("embedding contains non-finite values")
	errEmptyVector   = errors.New("embedding is empty")
	errStrategyCrash = errors.New("embedding strategy panicked")
)

const defaultStrategyTimeout = 20 * time.Second

// Strategy is one way of turning a fingerprint into a vector.
type Strategy interface {
	Name() string
	Embed(ctx context.Context, fp models.ConditionFingerprint) ([]float32, error)
}

// Engine runs the strategy cascade. Embed never fails: when every configured strategy errors,
// the deterministic projection produces the vector.
type Engine struct {
	dims       int
	strategies []Strategy
	projection *Projection
	timeout    time.Duration
	logger     *slog.Logger
	metrics    observability.EmbeddingMetrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStrategyTimeout bounds each non-final strategy call.
func WithStrategyTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEngineLogger sets the logger. Nil keeps slog.Default().
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEngineMetrics records per-strategy outcomes and latency.
func WithEngineMetrics(metrics observability.EmbeddingMetrics) EngineOption {
	return func(e *Engine) { e.metrics = metrics }
}

// NewEngine creates an engine producing dims-length vectors. strategies are tried in order before
// the projection fallback; nil entries are skipped.
func NewEngine(dims int, strategies []Strategy, opts ...EngineOption) *Engine {
	e := &Engine{
		dims:       dims,
		projection: NewProjection(dims),
		timeout:    defaultStrategyTimeout,
		logger:     slog.Default(),
	}

	for _, s := range strategies {
		if s != nil {
			e.strategies = append(e.strategies, s)
		}
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Dimensions returns the fixed vector length.
func (e *Engine) Dimensions() int {
	return e.dims
}

// Strategies returns the names of the cascade in order, projection last.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.strategies)+1)
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}

	return append(names, e.projection.Name())
}

// Embed returns a unit vector of the configured length for fp.
func (e *Engine) Embed(ctx context.Context, fp models.ConditionFingerprint) models.Embedding {
	for _, strategy := range e.strategies {
		start := time.Now()

		vector, err := e.try(ctx, strategy, fp)
		if err == nil {
			e.record(ctx, strategy.Name(), "success", start)

			return models.Embedding{Vector: vector, Dimensions: e.dims, Strategy: strategy.Name()}
		}

		e.record(ctx, strategy.Name(), "failed", start)
		e.logger.WarnContext(ctx, "embedding strategy failed, falling through",
			"strategy", strategy.Name(),
			"error", huberrors.NewEmbeddingDegradedError(strategy.Name(), err),
		)
	}

	start := time.Now()
	vector := e.projection.Project(fp)
	e.record(ctx, StrategyProjection, "success", start)

	return models.Embedding{Vector: vector, Dimensions: e.dims, Strategy: StrategyProjection}
}

// try runs one strategy under the per-strategy timeout and returns its vector fitted to the
// configured length and normalized.
func (e *Engine) try(ctx context.Context, strategy Strategy, fp models.ConditionFingerprint) (vector []float32, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			vector, err = nil, fmt.Errorf("%w: %v", errStrategyCrash, r)
		}
	}()

	raw, err := strategy.Embed(ctx, fp)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, errEmptyVector
	}

	for _, v := range raw {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, errNonFinite
		}
	}

	if len(raw) != e.dims {
		e.logger.DebugContext(ctx, "fitting embedding to configured dimensions",
			"strategy", strategy.Name(), "got", len(raw), "want", e.dims)
	}

	fitted := pkgembeddings.FitDimensions(raw, e.dims)
	if pkgembeddings.Magnitude(fitted) == 0 {
		return nil, errZeroVector
	}

	pkgembeddings.NormalizeL2(fitted)

	return fitted, nil
}

func (e *Engine) record(ctx context.Context, strategy, status string, start time.Time) {
	if e.metrics == nil {
		return
	}

	e.metrics.RecordStrategyOutcome(ctx, strategy, status)
	e.metrics.RecordStrategyDuration(ctx, strategy, status, time.Since(start))
}
