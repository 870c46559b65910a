// backfill-embeddings enqueues River enrichment jobs for reports that have no similarity
// record yet (e.g. reports created while the vector store was down, or before a dimension
// change). Enrichment workers in the API process run the jobs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/surfreport/hub/internal/config"
	"github.com/surfreport/hub/internal/observability"
	"github.com/surfreport/hub/internal/repository"
	"github.com/surfreport/hub/internal/service"
	"github.com/surfreport/hub/pkg/database"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return exitFailure
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel))

	if cfg.VectorStore == config.VectorStoreMemory {
		slog.Error("backfill needs the postgres vector store; VECTOR_STORE=memory keeps records in the API process")

		return exitFailure
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	// Insert-only client: no workers, the API process works the queue.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	reportService := service.NewReportService(service.ReportServiceParams{
		Reports:               repository.NewReportsRepository(db),
		Inserter:              riverClient,
		EnrichmentMaxAttempts: cfg.EnrichmentMaxAttempts,
	})

	enqueued, err := reportService.BackfillEnrichment(ctx)
	if err != nil {
		slog.Error("Backfill failed", "error", err, "enqueued", enqueued)

		return exitFailure
	}

	slog.Info("Backfill complete", "enqueued", enqueued)

	fmt.Printf("Enqueued %d enrichment job(s).\n", enqueued)

	return exitSuccess
}
