package workers

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/surfreport/hub/internal/observability"
)

// ErrorHandler logs job errors and panics. Retry scheduling is left to River.
type ErrorHandler struct {
	metrics observability.EnrichmentMetrics
}

// NewErrorHandler creates an ErrorHandler. metrics may be nil.
func NewErrorHandler(metrics observability.EnrichmentMetrics) *ErrorHandler {
	return &ErrorHandler{metrics: metrics}
}

// HandleError is called when a job returns an error.
func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	level := slog.LevelWarn
	if job.Attempt >= job.MaxAttempts {
		level = slog.LevelError
	}

	slog.Log(ctx, level, "river job failed",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"queue", job.Queue,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", err,
	)

	return nil
}

// HandlePanic is called when a job panics. The job is marked errored and retried like any failure.
func (h *ErrorHandler) HandlePanic(
	ctx context.Context, job *rivertype.JobRow, panicVal any, trace string,
) *river.ErrorHandlerResult {
	slog.ErrorContext(ctx, "river job panicked",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"queue", job.Queue,
		"attempt", job.Attempt,
		"panic_value", panicVal,
		"stack_trace", trace,
	)

	if h.metrics != nil {
		h.metrics.RecordOutcome(ctx, "panic")
	}

	return nil
}
