package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/surfreport/hub/internal/acquisition"
	"github.com/surfreport/hub/internal/api"
	"github.com/surfreport/hub/internal/api/handlers"
	"github.com/surfreport/hub/internal/api/middleware"
	"github.com/surfreport/hub/internal/config"
	"github.com/surfreport/hub/internal/embeddings"
	"github.com/surfreport/hub/internal/forecast"
	"github.com/surfreport/hub/internal/googleai"
	"github.com/surfreport/hub/internal/localembed"
	"github.com/surfreport/hub/internal/observability"
	"github.com/surfreport/hub/internal/openai"
	"github.com/surfreport/hub/internal/repository"
	"github.com/surfreport/hub/internal/service"
	"github.com/surfreport/hub/internal/similarity"
	"github.com/surfreport/hub/internal/spots"
	"github.com/surfreport/hub/internal/textgen"
	"github.com/surfreport/hub/internal/workers"
	"github.com/surfreport/hub/pkg/cache"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

var (
	errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")
	errUnsupportedLocalEmbedding    = errors.New("unsupported local embedding kind")
	errUnsupportedTextgenProvider   = errors.New("unsupported text generation provider")
)

const (
	providerOpenAI = "openai"
	providerGoogle = "google"

	localKindOllama           = "ollama"
	localKindOpenAICompatible = "openai-compatible"

	userAgent = "surfreport-hub/1.0"

	riverQueueDepthInterval = 15 * time.Second
	phraseCacheTTL          = 24 * time.Hour
)

// setupMetrics creates the meter provider, the collectors and (for prometheus) the /metrics handler.
// All nils when the exporter is unsupported.
func setupMetrics(cfg *config.Config) (*sdkmetric.MeterProvider, *observability.Metrics, http.Handler, error) {
	mp, handler, err := observability.NewMeterProvider(cfg.OtelMetricsExporter)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		slog.Warn("metrics disabled: unsupported OTEL_METRICS_EXPORTER", "exporter", cfg.OtelMetricsExporter)

		return nil, nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter("surfreport-hub"))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, metrics, handler, nil
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		err            error
		meterProvider  *sdkmetric.MeterProvider
		metrics        *observability.Metrics
		metricsHandler http.Handler
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, metrics, metricsHandler, err = setupMetrics(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(context.Background(), observability.TracerOptions{
			Exporter:    cfg.OtelTracesExporter,
			SampleRatio: cfg.OtelTracesRatio,
		})
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(context.Background(), meterProvider); err2 != nil {
				slog.Error("shutdown meter provider after tracer provider error", "error", err2)
			}

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	fail := func(err error) (*App, error) {
		if obsErr := shutdownObservability(context.Background(), tracerProvider, meterProvider); obsErr != nil {
			slog.Error("shutdown observability after startup error", "error", obsErr)
		}

		return nil, err
	}

	m := metricSet(metrics)

	directory, err := spots.Parse(cfg.Spots)
	if err != nil {
		return fail(fmt.Errorf("SPOTS: %w", err))
	}

	engine, err := newEmbeddingEngine(cfg, m)
	if err != nil {
		return fail(err)
	}

	generator, err := newTextGenerator(cfg)
	if err != nil {
		return fail(err)
	}

	var store similarity.Store = repository.NewSimilarityRepository(db)
	if cfg.VectorStore == config.VectorStoreMemory {
		slog.Warn("similarity records kept in memory; they are lost on restart (VECTOR_STORE=memory)")

		store = similarity.NewMemoryStore()
	}

	index := similarity.NewIndex(store,
		similarity.WithQualityGate(similarity.QualityGate{
			MinRating:   cfg.SimilarityMinRating,
			MinFeedback: cfg.SimilarityMinFeedback,
		}),
		similarity.WithSentinel(cfg.SimilaritySentinel),
		similarity.WithIndexMetrics(m.similarity),
	)

	reportService := service.NewReportService(service.ReportServiceParams{
		Spots:                 directory,
		Acquisition:           newAcquisitionService(cfg, m),
		Generator:             generator,
		Reports:               repository.NewReportsRepository(db),
		Feedback:              repository.NewFeedbackRepository(db),
		Embedder:              engine,
		Index:                 index,
		EnrichmentMaxAttempts: cfg.EnrichmentMaxAttempts,
		DefaultHorizonDays:    cfg.DefaultHorizonDays,
		MinSimilarity:         cfg.SimilarityMinScore,
		DefaultLimit:          cfg.SimilarityDefaultLimit,
		Metrics:               m.enrichment,
	})

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewReportEnrichmentWorker(reportService, m.enrichment))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		ErrorHandler: workers.NewErrorHandler(m.enrichment),
		Queues: map[string]river.QueueConfig{
			service.EnrichmentQueueName: {MaxWorkers: cfg.EnrichmentWorkers},
		},
		Workers: riverWorkers,
	})
	if err != nil {
		return fail(fmt.Errorf("create River client: %w", err))
	}

	if cfg.EnrichmentQueueEnabled {
		reportService.SetInserter(riverClient)
	} else {
		slog.Info("enrichment retries disabled (ENRICHMENT_QUEUE_ENABLED=false); failures are only logged")
	}

	router := api.NewRouter(api.RouterParams{
		Reports:        handlers.NewReportsHandler(reportService),
		Health:         handlers.NewHealthHandler(db),
		Metrics:        m.api,
		MetricsHandler: metricsHandler,
		MaxBodyBytes:   cfg.MaxRequestBodyBytes,
	})

	slog.Info("report service ready",
		"spots", len(directory.List()),
		"embedding_strategies", engine.Strategies(),
		"embedding_dimensions", engine.Dimensions(),
		"vector_store", cfg.VectorStore,
		"textgen_provider", textgenName(cfg),
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         newHTTPServer(cfg, router, meterProvider, tracerProvider),
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// collectors holds the per-component collectors; every field is nil when metrics are disabled.
type collectors struct {
	api        observability.APIMetrics
	forecast   observability.ForecastMetrics
	embeddings observability.EmbeddingMetrics
	similarity observability.SimilarityMetrics
	enrichment observability.EnrichmentMetrics
	cache      observability.CacheMetrics
}

func metricSet(all *observability.Metrics) collectors {
	if all == nil {
		return collectors{}
	}

	return collectors{
		api:        all.API,
		forecast:   all.Forecast,
		embeddings: all.Embeddings,
		similarity: all.Similarity,
		enrichment: all.Enrichment,
		cache:      all.Cache,
	}
}

// newAcquisitionService builds one forecast client per source: pooled transport behind a
// circuit breaker first, bare transport as the fallback.
func newAcquisitionService(cfg *config.Config, m collectors) *acquisition.Service {
	policy := forecast.RetryPolicy{
		MaxAttempts: cfg.ForecastMaxAttempts,
		BaseDelay:   cfg.ForecastBaseDelay,
		MaxDelay:    cfg.ForecastMaxDelay,
		MaxJitter:   cfg.ForecastMaxJitter,
	}

	sources := []forecast.Source{
		forecast.NewMarineSource(cfg.ForecastMarineURL, cfg.ForecastTimezone),
		forecast.NewAtmosphericSource(cfg.ForecastAtmosphericURL, cfg.ForecastTimezone),
	}

	fetchers := make([]acquisition.Fetcher, 0, len(sources))
	for _, source := range sources {
		fetchers = append(fetchers, forecast.NewClient(source,
			forecast.NewPooledTransport(cfg.ForecastTimeout, userAgent),
			policy,
			forecast.WithSecondary(forecast.NewBareTransport(cfg.ForecastTimeout, userAgent)),
			forecast.WithMetrics(m.forecast),
		))
	}

	return acquisition.NewService(fetchers, cfg.ForecastFallbackHorizon, acquisition.WithMetrics(m.forecast))
}

// newEmbeddingEngine assembles the strategy cascade: external provider, then local backend,
// then the built-in projection. Unset providers are skipped.
func newEmbeddingEngine(cfg *config.Config, m collectors) (*embeddings.Engine, error) {
	var strategies []embeddings.Strategy

	remote, err := newRemoteEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	if remote != nil {
		opts := []embeddings.TextStrategyOption{
			embeddings.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)),
		}

		if cfg.EmbeddingCacheSize > 0 {
			opts = append(opts, embeddings.WithPhraseCache(
				cache.NewLoaderCache[[]float32](cfg.EmbeddingCacheSize, phraseCacheTTL), m.cache))
		}

		strategies = append(strategies, embeddings.NewTextStrategy(embeddings.StrategyRemote, remote, opts...))
	}

	local, err := newLocalEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	if local != nil {
		strategies = append(strategies, embeddings.NewTextStrategy(embeddings.StrategyLocal, local))
	}

	return embeddings.NewEngine(cfg.EmbeddingDimensions, strategies,
		embeddings.WithStrategyTimeout(cfg.EmbeddingTimeout),
		embeddings.WithEngineMetrics(m.embeddings),
	), nil
}

func newRemoteEmbedder(cfg *config.Config) (embeddings.TextEmbedder, error) {
	switch cfg.EmbeddingProvider {
	case "":
		return nil, nil //nolint:nilnil // no external provider configured
	case providerOpenAI:
		return openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case providerGoogle:
		client, err := googleai.NewClient(context.Background(), cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

func newLocalEmbedder(cfg *config.Config) (embeddings.TextEmbedder, error) {
	switch cfg.LocalEmbeddingKind {
	case "":
		return nil, nil //nolint:nilnil // no local backend configured
	case localKindOllama:
		return localembed.NewOllamaClient(localembed.OllamaOptions{
			BaseURL: cfg.LocalEmbeddingURL,
			Model:   cfg.LocalEmbeddingModel,
			Timeout: cfg.EmbeddingTimeout,
		}), nil
	case localKindOpenAICompatible:
		return localembed.NewOpenAICompatibleClient(cfg.LocalEmbeddingURL, "", cfg.LocalEmbeddingModel), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedLocalEmbedding, cfg.LocalEmbeddingKind)
	}
}

func newTextGenerator(cfg *config.Config) (textgen.Generator, error) {
	switch cfg.TextgenProvider {
	case "":
		return textgen.NewTemplateGenerator(), nil
	case providerOpenAI:
		return textgen.NewLLMGenerator(openai.NewClient(cfg.TextgenAPIKey, openai.WithChatModel(cfg.TextgenModel))), nil
	case providerGoogle:
		client, err := googleai.NewClient(context.Background(), cfg.TextgenAPIKey, googleai.WithTextModel(cfg.TextgenModel))
		if err != nil {
			return nil, fmt.Errorf("create google text client: %w", err)
		}

		return textgen.NewLLMGenerator(client), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedTextgenProvider, cfg.TextgenProvider)
	}
}

func textgenName(cfg *config.Config) string {
	if cfg.TextgenProvider == "" {
		return "template"
	}

	return cfg.TextgenProvider
}

// newHTTPServer wraps the router. Handler chain: RequestID -> otelhttp(Logging(router)) so access
// logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	router http.Handler,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes.
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/health", "/ready", "/metrics":
				return false
			default:
				return true
			}
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	handler := otelhttp.NewHandler(middleware.Logging(router), "surfreport-api", otelOpts...)
	handler = middleware.RequestID(handler)

	// Report generation waits on forecast retries and the text backend.
	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 3 * time.Minute
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.metrics != nil && a.metrics.Enrichment != nil {
		go runRiverQueueDepthPoller(riverCtx, a.db, a.metrics.Enrichment)
	}

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the enrichment queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, enrichment observability.EnrichmentMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			service.EnrichmentQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		enrichment.SetRiverQueueDepth(count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops the server, then River (waiting for in-flight enrichment jobs). Call after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
