package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ForecastMetrics records forecast acquisition metrics (per-attempt outcomes, fetch latency,
// horizon degradation).
type ForecastMetrics interface {
	RecordAttempt(ctx context.Context, source, transport, outcome string)
	RecordFetchDuration(ctx context.Context, source, outcome string, duration time.Duration)
	RecordDegradation(ctx context.Context, horizonDays int)
}

type forecastMetrics struct {
	attempts     metric.Int64Counter
	duration     metric.Float64Histogram
	degradations metric.Int64Counter
}

// NewForecastMetrics creates ForecastMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewForecastMetrics(meter metric.Meter) (ForecastMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	attempts, err := meter.Int64Counter(
		MetricNameForecastAttempts,
		metric.WithDescription("Forecast fetch attempts by source, transport and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create forecast attempts counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameForecastFetchDuration,
		metric.WithDescription("Duration of a full forecast fetch including retries and fallback (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create forecast duration histogram: %w", err)
	}

	degradations, err := meter.Int64Counter(
		MetricNameForecastDegradations,
		metric.WithDescription("Acquisitions retried with a smaller horizon, labelled by the horizon tried"),
	)
	if err != nil {
		return nil, fmt.Errorf("create forecast degradations counter: %w", err)
	}

	return &forecastMetrics{attempts: attempts, duration: duration, degradations: degradations}, nil
}

func (f *forecastMetrics) RecordAttempt(ctx context.Context, source, transport, outcome string) {
	f.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSource, NormalizeReason(source, AllowedForecastSources)),
		attribute.String(AttrTransport, NormalizeReason(transport, AllowedTransports)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedAttemptOutcomes)),
	))
}

func (f *forecastMetrics) RecordFetchDuration(ctx context.Context, source, outcome string, duration time.Duration) {
	f.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrSource, NormalizeReason(source, AllowedForecastSources)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedFetchOutcomes)),
	))
}

func (f *forecastMetrics) RecordDegradation(ctx context.Context, horizonDays int) {
	const maxHorizonLabel = 16
	if horizonDays < 0 || horizonDays > maxHorizonLabel {
		horizonDays = -1
	}

	f.degradations.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrHorizon, strconv.Itoa(horizonDays))))
}
