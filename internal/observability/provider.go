package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const (
	serviceName      = "surfreport-api"
	cardinalityLimit = 2000
)

// Metrics exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
)

// newResource returns a resource with the service name merged with default.
func newResource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("merge resource: %w", err)
	}

	return res, nil
}

// NewMeterProvider creates a MeterProvider for the configured exporter. With "prometheus" it
// also returns the /metrics handler; with "otlp" the handler is nil (push). Any other value,
// including empty, returns all nils (metrics disabled).
func NewMeterProvider(exporter string) (*sdkmetric.MeterProvider, http.Handler, error) {
	var (
		reader  sdkmetric.Reader
		handler http.Handler
	)

	switch exporter {
	case ExporterPrometheus:
		reg := prometheus.NewRegistry()

		exp, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		reader = exp
		handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	case ExporterOTLP:
		// SDK reads OTEL_EXPORTER_OTLP_ENDPOINT (and scheme/insecure) from env.
		exp, err := otlpmetrichttp.New(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}

		const metricExportInterval = 60 * time.Second

		reader = sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricExportInterval))
	default:
		return nil, nil, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	// Duration histograms record in seconds; OTel default boundaries are millisecond-oriented.
	// Forecast fetches with retries and fallback can take tens of seconds.
	durationHistogramBounds := []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90}
	view := sdkmetric.NewView(
		sdkmetric.Instrument{Name: "surf_*_duration_seconds"},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationHistogramBounds}},
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(view),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
	)

	return provider, handler, nil
}

// ShutdownMeterProvider flushes and shuts down the MeterProvider. Safe to call with nil.
func ShutdownMeterProvider(ctx context.Context, provider *sdkmetric.MeterProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}
