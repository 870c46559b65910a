// Package workers provides River job workers (e.g. report enrichment).
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/observability"
	"github.com/surfreport/hub/internal/service"
)

// ReportEnrichmentWorker rebuilds the similarity record of a report whose inline enrichment failed.
type ReportEnrichmentWorker struct {
	river.WorkerDefaults[service.ReportEnrichmentArgs]

	enricher reportEnricher
	metrics  observability.EnrichmentMetrics
	clock    clockwork.Clock
}

// reportEnricher is the minimal interface needed by the worker.
type reportEnricher interface {
	EnrichReport(ctx context.Context, reportID uuid.UUID) error
}

// NewReportEnrichmentWorker creates the worker. metrics may be nil when metrics are disabled.
func NewReportEnrichmentWorker(enricher reportEnricher, metrics observability.EnrichmentMetrics) *ReportEnrichmentWorker {
	return &ReportEnrichmentWorker{
		enricher: enricher,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
}

const reportEnrichmentTimeout = 45 * time.Second

// Timeout limits how long a single enrichment job can run.
func (w *ReportEnrichmentWorker) Timeout(*river.Job[service.ReportEnrichmentArgs]) time.Duration {
	return reportEnrichmentTimeout
}

// Work rebuilds the record. Errors are returned for River to retry until the last attempt; a
// report deleted in the meantime is skipped.
func (w *ReportEnrichmentWorker) Work(ctx context.Context, job *river.Job[service.ReportEnrichmentArgs]) error {
	reportID := job.Args.ReportID
	start := w.clock.Now()

	err := w.enricher.EnrichReport(ctx, reportID)

	switch {
	case err == nil:
		w.record(ctx, "success", start)
		slog.Info("enrichment: similarity record stored", "report_id", reportID, "attempt", job.Attempt)

		return nil
	case errors.Is(err, huberrors.ErrNotFound):
		w.record(ctx, "skipped", start)
		slog.Info("enrichment: report gone, skipping", "report_id", reportID)

		return nil
	case job.Attempt >= job.MaxAttempts:
		w.record(ctx, "failed_final", start)
		slog.Error("enrichment: failed (final attempt)", "report_id", reportID, "error", err)

		return nil
	default:
		w.record(ctx, "retry", start)
		slog.Warn("enrichment: failed, will retry",
			"report_id", reportID, "attempt", job.Attempt, "max_attempts", job.MaxAttempts, "error", err)

		return fmt.Errorf("enrich report: %w", err)
	}
}

func (w *ReportEnrichmentWorker) record(ctx context.Context, status string, start time.Time) {
	if w.metrics == nil {
		return
	}

	w.metrics.RecordOutcome(ctx, status)
	w.metrics.RecordDuration(ctx, status, w.clock.Since(start))
}
