package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracerOptions selects the span exporter and the share of new traces that are recorded.
type TracerOptions struct {
	Exporter    string  // "otlp", "stdout" or "" (disabled)
	SampleRatio float64 // 0..1, applied to root spans only
}

// NewTracerProvider creates a TracerProvider for opts.Exporter. An empty or unknown exporter
// returns (nil, nil) and tracing stays disabled.
func NewTracerProvider(ctx context.Context, opts TracerOptions) (*sdktrace.TracerProvider, error) {
	exp, err := newTraceExporter(ctx, opts.Exporter)
	if err != nil || exp == nil {
		return nil, err
	}

	res, err := newResource()
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(opts.SampleRatio)),
		sdktrace.WithBatcher(exp),
	), nil
}

// newTraceExporter returns nil without error when exporter names no supported backend.
// The OTLP exporter reads OTEL_EXPORTER_OTLP_ENDPOINT and friends from the environment.
func newTraceExporter(ctx context.Context, exporter string) (sdktrace.SpanExporter, error) {
	switch exporter {
	case ExporterOTLP:
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create OTLP HTTP trace exporter: %w", err)
		}

		return exp, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}

		return exp, nil
	default:
		//nolint:nilnil // tracing disabled, caller checks for nil
		return nil, nil
	}
}
