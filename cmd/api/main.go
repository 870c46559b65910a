// Package main runs the surf report API server and its enrichment workers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/surfreport/hub/internal/config"
	"github.com/surfreport/hub/internal/observability"
	"github.com/surfreport/hub/internal/repository"
	"github.com/surfreport/hub/pkg/database"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := migrate(ctx, cfg); err != nil {
			slog.Error("Failed to apply migrations", "error", err)

			return 1
		}
	}

	// The vector extension must exist before types are registered on connect.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithVectorTypes(),
		database.WithMaxConns(int32(cfg.DatabaseMaxConns)), //nolint:gosec // validated positive, small
	)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return 1
	}
	defer db.Close()

	app, err := NewApp(cfg, db)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)

		return 1
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		slog.Error("Application stopped with error", "error", runErr)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)

		return 1
	}

	slog.Info("Server exited")

	if runErr != nil {
		return 1
	}

	return 0
}

// migrate applies River and schema migrations on a short-lived pool without vector type
// registration, since the extension may not exist yet.
func migrate(ctx context.Context, cfg *config.Config) error {
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithMaxConns(2))
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	defer db.Close()

	return repository.Migrate(ctx, db) //nolint:wrapcheck // already wrapped per migration
}
