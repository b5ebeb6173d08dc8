// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-console/internal/config"
	"catalog-console/internal/domain/ports/adapter"
	aiAdapters "catalog-console/internal/infra/adapters/ai"
	pg "catalog-console/internal/infra/db/postgres"
	"catalog-console/internal/infra/logging"
	"catalog-console/internal/infra/metrics"
	red "catalog-console/internal/infra/redis"
	"catalog-console/internal/infra/web"
	"catalog-console/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	markerRepo := red.NewMarkerRepo(redisClient)
	locker := red.NewLocker(redisClient, 0)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	contentRepo := pg.NewPostgresContentRepo(pool)
	categoryRepo := pg.NewPostgresCategoryRepo(pool)

	// ---- Generation service (Gemini -> OpenAI -> noop in dev) ----
	var svc adapter.GenerationService
	switch {
	case cfg.Runtime.Dev:
		svc = aiAdapters.NewNoopService()
		logger.Info().Msg("generation service: noop (dev mode)")
	case cfg.AI.GeminiKey != "":
		svc, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, 0)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("generation service: gemini")
	case cfg.AI.OpenAIKey != "":
		svc, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.OpenAIBaseURL)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("generation service: openai-compatible")
	default:
		log.Fatalf("no AI provider configured: set ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}
	svc = aiAdapters.NewLimitedService(svc, cfg.AI.ConcurrentLimit)

	// ---- Use cases ----
	dedupUC := usecase.NewDedupUseCase(contentRepo, logger)
	genUC := usecase.NewGenerationUseCase(
		contentRepo, categoryRepo, markerRepo, locker, svc, dedupUC,
		usecase.RetryPolicy{Base: cfg.Generation.BackoffBase, MaxRetries: cfg.Generation.MaxRetries},
		usecase.RetryPolicy{Base: cfg.Generation.BackoffBase, MaxRetries: cfg.Generation.AuthMaxRetries},
		usecase.PacingPolicy{Floor: cfg.Generation.PacingFloor},
		cfg.Generation.MaxCountPerCategory,
		logger,
	)
	resolveUC := usecase.NewResolveUseCase(contentRepo, svc, dedupUC, logger)

	// A marker left set means a previous batch may not have finished.
	// Advisory only: interrupted batches are never resumed.
	if stalled, err := genUC.CheckStalled(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not read in-progress marker")
	} else if stalled {
		logger.Warn().Msg("in-progress marker found: a previous batch may still be running or was interrupted")
	}

	// ---- Ops HTTP server ----
	srv := web.NewServer(genUC, dedupUC, resolveUC, rateLimiter, cfg.Generation.LaunchesPerHour, cfg.Admin.APIKey, logger)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: mux,
	}
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("ops server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server failed")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info().Msg("bye")
}
