package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSampler keeps ratio of the report, feedback and similarity requests that start a trace.
// Spans with a parent follow the parent's decision, so a forecast fetch or an enrichment job
// is never cut out of a trace that was kept.
func newSampler(ratio float64) sdktrace.Sampler {
	var root sdktrace.Sampler

	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}

	return sdktrace.ParentBased(root)
}
