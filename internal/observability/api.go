package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// APIMetrics records HTTP API metrics.
type APIMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
}

// apiMetrics implements APIMetrics.
type apiMetrics struct {
	requests            metric.Int64Counter
	duration            metric.Float64Histogram
	requestBodyTooLarge metric.Int64Counter
}

// NewAPIMetrics creates APIMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewAPIMetrics(meter metric.Meter) (APIMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameHTTPRequests,
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameHTTPDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http duration histogram: %w", err)
	}

	desc := "Total number of requests rejected because the request body exceeded the configured limit (413)."

	tooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription(desc),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request body too large counter: %w", err)
	}

	return &apiMetrics{requests: requests, duration: duration, requestBodyTooLarge: tooLarge}, nil
}

func (a *apiMetrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	a.requests.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	a.duration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (a *apiMetrics) RecordRequestBodyTooLarge(ctx context.Context) {
	a.requestBodyTooLarge.Add(ctx, 1)
}
