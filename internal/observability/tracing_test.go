package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	testTraceID = trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	testSpanID  = trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
)

func rootDecision(s sdktrace.Sampler) sdktrace.SamplingDecision {
	return s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       testTraceID,
		Name:          "POST /reports",
	}).Decision
}

func TestNewSampler_RootRatio(t *testing.T) {
	assert.Equal(t, sdktrace.RecordAndSample, rootDecision(newSampler(1)))
	assert.Equal(t, sdktrace.RecordAndSample, rootDecision(newSampler(2)), "above 1 keeps everything")
	assert.Equal(t, sdktrace.Drop, rootDecision(newSampler(0)))
	assert.Equal(t, sdktrace.Drop, rootDecision(newSampler(-1)))
}

func TestNewSampler_FollowsSampledParent(t *testing.T) {
	parent := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    testTraceID,
		SpanID:     testSpanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))

	res := newSampler(0).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parent,
		TraceID:       testTraceID,
		Name:          "forecast.fetch",
	})

	assert.Equal(t, sdktrace.RecordAndSample, res.Decision)
}

func TestNewTracerProvider(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), TracerOptions{})
	require.NoError(t, err)
	assert.Nil(t, tp, "no exporter disables tracing")

	tp, err = NewTracerProvider(context.Background(), TracerOptions{Exporter: ExporterStdout, SampleRatio: 0.25})
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, ShutdownTracerProvider(context.Background(), tp))
}
