package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EmbeddingMetrics records embedding cascade metrics per strategy.
// Methods accept ctx for future exemplar support.
type EmbeddingMetrics interface {
	RecordStrategyOutcome(ctx context.Context, strategy, status string)
	RecordStrategyDuration(ctx context.Context, strategy, status string, duration time.Duration)
}

// embeddingMetrics implements EmbeddingMetrics.
type embeddingMetrics struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
}

// NewEmbeddingMetrics creates EmbeddingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	outcomes, err := meter.Int64Counter(
		MetricNameEmbeddingOutcomes,
		metric.WithDescription("Embedding strategy outcomes (success, failed, cache_hit) per strategy"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding outcomes counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding strategy duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding duration histogram: %w", err)
	}

	return &embeddingMetrics{outcomes: outcomes, duration: duration}, nil
}

func embeddingAttrs(strategy, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String(AttrStrategy, NormalizeReason(strategy, AllowedEmbeddingStrategies)),
		attribute.String(AttrStatus, NormalizeReason(status, AllowedEmbeddingStatuses)),
	)
}

func (e *embeddingMetrics) RecordStrategyOutcome(ctx context.Context, strategy, status string) {
	e.outcomes.Add(ctx, 1, embeddingAttrs(strategy, status))
}

func (e *embeddingMetrics) RecordStrategyDuration(ctx context.Context, strategy, status string, duration time.Duration) {
	e.duration.Record(ctx, duration.Seconds(), embeddingAttrs(strategy, status))
}
