package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"feedmill/internal/handler/http/admin"
	pgRepo "feedmill/internal/infra/adapter/persistence/postgres"
	"feedmill/internal/infra/analyzer"
	"feedmill/internal/infra/blobstore"
	"feedmill/internal/infra/bus"
	"feedmill/internal/infra/db"
	"feedmill/internal/infra/embeddings"
	"feedmill/internal/infra/feed"
	"feedmill/internal/infra/fetcher"
	"feedmill/internal/handler/http/requestid"
	"feedmill/internal/infra/notifier"
	workerPkg "feedmill/internal/infra/worker"
	"feedmill/internal/observability/logging"
	"feedmill/internal/observability/tracing"
	"feedmill/internal/ratelimit"
	"feedmill/internal/repository"
	"feedmill/internal/resilience/circuitbreaker"
	"feedmill/internal/usecase/deadletter"
	"feedmill/internal/usecase/dispatch"
	"feedmill/internal/usecase/enrichment"
	"feedmill/internal/usecase/manager"
	"feedmill/internal/usecase/scraper"
)

// reconcileSchedule is the coarse robfig/cron sweep driving
// manager.Manager.Reconcile, distinct from each source's own
// time.AfterFunc-driven tick interval (see DESIGN.md).
const reconcileSchedule = "*/5 * * * *"

func main() {
	logger := initLogger()

	cfg, err := workerPkg.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every repository query runs through a shared circuit breaker so
	// repeated database failures trip it once, here, instead of each
	// repository retrying into an already-down database independently.
	dbtx := circuitbreaker.NewDBCircuitBreaker(database)
	sourceRepo := pgRepo.NewSourceRepo(dbtx)
	stateRepo := pgRepo.NewSourceStateRepo(dbtx)
	articleRepo := pgRepo.NewArticleRepo(dbtx)
	deadLetterRepo := pgRepo.NewDeadLetterRepo(dbtx)

	messageBus := bus.New(cfg.BusBufferSize)

	plainFetcher, renderFetcher := setupFetchers(logger)
	analyzerClient := setupAnalyzer(logger)
	embeddingsClient := setupEmbeddings(logger)
	blobStore := setupBlobStore(logger, cfg.BlobRoot)

	limiter := ratelimit.New(cfg.RateLimiter)

	enrichmentWorker := enrichment.NewWorker(enrichment.Deps{
		Articles:      articleRepo,
		Limiter:       limiter,
		PlainFetcher:  plainFetcher,
		RenderFetcher: renderFetcher,
		TrickyHosts:   cfg.TrickyHosts,
		Analyzer:      analyzerClient,
		Embeddings:    embeddingsClient,
		Blobs:         blobStore,
		Logger:        logger,
	})

	notifyService := setupDeadLetterNotifier(logger)

	dispatcher := dispatch.New(dispatch.Config{
		Bus:               messageBus,
		Worker:            enrichmentWorker,
		DeadLetters:       deadLetterRepo,
		Notifier:          notifyService,
		MaxConcurrentJobs: cfg.Dispatcher.MaxConcurrentJobs,
		MaxAttempts:       cfg.Dispatcher.MaxAttempts,
		JobSlotTimeout:    cfg.Dispatcher.JobSlotTimeout,
		Logger:            logger,
	})
	go func() {
		if err := dispatcher.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("dispatcher stopped", slog.Any("error", err))
		}
	}()

	feedClient := plainHTTPClient()
	mgr := manager.New(sourceRepo, func(sourceID int64) *scraper.Instance {
		return scraper.NewInstance(scraper.Deps{
			Sources:   sourceRepo,
			States:    stateRepo,
			Articles:  articleRepo,
			Fetcher:   feed.NewFetcher(feedClient),
			Publisher: messageBus,
			Logger:    logger,
		}, sourceID)
	}, logger)

	healthServer := workerPkg.NewHealthServer(portAddr(cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	startMetricsAndAdminServer(ctx, logger, cfg.MetricsPort, mgr, sourceRepo, notifyService)
	startReconcileLoop(ctx, logger, mgr)

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.Int("healthPort", cfg.HealthPort),
		slog.Int("metricsPort", cfg.MetricsPort),
		slog.Int("busBufferSize", cfg.BusBufferSize))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown timed out", slog.Any("error", err))
	}
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Error("notifier shutdown timed out", slog.Any("error", err))
	}
}

func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	logger.Info("database connection established")
	return database
}

func plainHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func setupFetchers(logger *slog.Logger) (fetcher.Fetcher, fetcher.Fetcher) {
	fetchCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load fetcher configuration, using defaults", slog.Any("error", err))
		fetchCfg = fetcher.DefaultConfig()
	}
	return fetcher.NewPlainFetcher(fetchCfg), fetcher.NewRenderFetcher(fetchCfg)
}

func setupAnalyzer(logger *slog.Logger) analyzer.Analyzer {
	analyzerCfg, err := analyzer.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load analyzer configuration, falling back to noop", slog.Any("error", err))
		analyzerCfg = analyzer.DefaultConfig()
	}
	a, err := analyzer.New(analyzerCfg)
	if err != nil {
		logger.Error("failed to build analyzer, falling back to noop", slog.Any("error", err))
		return analyzer.Noop{}
	}
	logger.Info("analyzer initialized", slog.String("provider", string(analyzerCfg.Provider)))
	return a
}

func setupEmbeddings(logger *slog.Logger) *embeddings.Client {
	embCfg, err := workerPkg.LoadEmbeddingsConfig()
	if err != nil {
		logger.Error("failed to load embeddings configuration", slog.Any("error", err))
		os.Exit(1)
	}
	return embeddings.New(embCfg)
}

func setupBlobStore(logger *slog.Logger, root string) *blobstore.FileStore {
	if err := os.MkdirAll(root, 0o755); err != nil {
		logger.Error("failed to create blob root", slog.String("root", root), slog.Any("error", err))
		os.Exit(1)
	}
	return blobstore.NewFileStore(root)
}

func setupDeadLetterNotifier(logger *slog.Logger) deadletter.Service {
	var channels []deadletter.Channel

	if discordCfg := loadDiscordConfig(logger); discordCfg.Enabled {
		channels = append(channels, notifier.NewDiscordNotifier(discordCfg))
		logger.Info("discord dead-letter channel enabled")
	}
	if slackCfg := loadSlackConfig(logger); slackCfg.Enabled {
		channels = append(channels, notifier.NewSlackNotifier(slackCfg))
		logger.Info("slack dead-letter channel enabled")
	}

	return deadletter.NewService(channels, 10)
}

func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	if os.Getenv("DISCORD_ENABLED") != "true" {
		return notifier.DiscordConfig{Enabled: false}
	}
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if webhookURL == "" {
		logger.Warn("DISCORD_ENABLED=true but DISCORD_WEBHOOK_URL is empty, disabling")
		return notifier.DiscordConfig{Enabled: false}
	}
	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if os.Getenv("SLACK_ENABLED") != "true" {
		return notifier.SlackConfig{Enabled: false}
	}
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		logger.Warn("SLACK_ENABLED=true but SLACK_WEBHOOK_URL is empty, disabling")
		return notifier.SlackConfig{Enabled: false}
	}
	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// startMetricsAndAdminServer starts the combined Prometheus metrics and
// scraper admin HTTP server (spec §6). Both surfaces are operator-facing,
// not public, so they share one port behind tracing.Middleware.
func startMetricsAndAdminServer(ctx context.Context, logger *slog.Logger, port int, mgr *manager.Manager, sources repository.SourceRepository, notifyService deadletter.Service) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /health/channels", channelHealthHandler(notifyService))
	admin.Register(mux, mgr, sources)

	server := &http.Server{
		Addr:         portAddr(port),
		Handler:      requestid.Middleware(tracing.Middleware(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("admin/metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin/metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin/metrics server shutdown error", slog.Any("error", err))
		}
	}()
}

// startReconcileLoop runs an immediate reconcile pass, then schedules
// regular passes on reconcileSchedule via robfig/cron.
func startReconcileLoop(ctx context.Context, logger *slog.Logger, mgr *manager.Manager) {
	reconcileMetrics := workerPkg.NewReconcileMetrics()

	run := func() {
		start := time.Now()
		result, err := mgr.Reconcile(ctx)
		reconcileMetrics.RecordDuration(time.Since(start).Seconds())
		if err != nil {
			reconcileMetrics.RecordRun("failure")
			logger.Error("reconcile pass failed", slog.Any("error", err))
			return
		}
		reconcileMetrics.RecordRun("success")
		reconcileMetrics.RecordSourcesInitialized(result.Initialized)
		reconcileMetrics.RecordSourcesDestroyed(result.Destroyed)
		reconcileMetrics.RecordLastSuccess()
		logger.Info("reconcile pass complete",
			slog.Int("initialized", result.Initialized),
			slog.Int("destroyed", result.Destroyed))
	}

	run()

	c := cron.New()
	if _, err := c.AddFunc(reconcileSchedule, run); err != nil {
		logger.Error("failed to schedule reconcile loop", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}

func portAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}

// healthResponse is the body of GET /health (plain liveness probe).
type healthResponse struct {
	Status string `json:"status"`
}

// channelHealthResponse is the body of GET /health/channels, reporting each
// dead-letter notification channel's circuit-breaker state.
type channelHealthResponse struct {
	Healthy  bool                              `json:"healthy"`
	Channels []deadletter.ChannelHealthStatus  `json:"channels"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "healthy"})
}

func channelHealthHandler(notifyService deadletter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := notifyService.GetChannelHealth()

		healthy := true
		for _, s := range statuses {
			if s.Enabled && s.CircuitBreakerOpen {
				healthy = false
			}
		}

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(channelHealthResponse{Healthy: healthy, Channels: statuses})
	}
}
