package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EnrichmentMetrics records the fingerprint -> embed -> upsert enrichment pipeline, inline and
// through River jobs.
type EnrichmentMetrics interface {
	RecordJobsEnqueued(ctx context.Context, count int64)
	RecordOutcome(ctx context.Context, status string)
	RecordDuration(ctx context.Context, status string, duration time.Duration)
	SetRiverQueueDepth(depth int)
}

type enrichmentMetrics struct {
	jobsEnqueued    metric.Int64Counter
	outcomes        metric.Int64Counter
	duration        metric.Float64Histogram
	riverQueueDepth atomic.Int64
	riverQueueGauge metric.Float64ObservableGauge
}

// NewEnrichmentMetrics creates EnrichmentMetrics and registers the queue depth gauge.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewEnrichmentMetrics(meter metric.Meter) (EnrichmentMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	jobsEnqueued, err := meter.Int64Counter(
		MetricNameEnrichmentJobsEnqueued,
		metric.WithDescription("Total enrichment jobs enqueued (inline failure retries and backfill)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enrichment jobs enqueued counter: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		MetricNameEnrichmentOutcomes,
		metric.WithDescription("Enrichment outcomes by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enrichment outcomes counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEnrichmentDuration,
		metric.WithDescription("Enrichment duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enrichment duration histogram: %w", err)
	}

	m := &enrichmentMetrics{jobsEnqueued: jobsEnqueued, outcomes: outcomes, duration: duration}

	gauge, err := meter.Float64ObservableGauge(
		MetricNameRiverQueueDepth,
		metric.WithDescription("Current River enrichment queue depth (available, retryable, scheduled)"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(float64(m.riverQueueDepth.Load()))

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create river queue depth gauge: %w", err)
	}

	m.riverQueueGauge = gauge

	return m, nil
}

func (m *enrichmentMetrics) RecordJobsEnqueued(ctx context.Context, count int64) {
	m.jobsEnqueued.Add(ctx, count)
}

func (m *enrichmentMetrics) RecordOutcome(ctx context.Context, status string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStatus, NormalizeReason(status, AllowedEnrichmentStatuses))))
}

func (m *enrichmentMetrics) RecordDuration(ctx context.Context, status string, duration time.Duration) {
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStatus, NormalizeReason(status, AllowedEnrichmentStatuses))))
}

func (m *enrichmentMetrics) SetRiverQueueDepth(depth int) {
	m.riverQueueDepth.Store(int64(depth))
}
