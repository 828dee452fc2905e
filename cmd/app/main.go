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

	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/config"
	"podcast-content-pipeline/internal/domain/ports/adapter"
	aiAdapters "podcast-content-pipeline/internal/infra/adapters/ai"
	"podcast-content-pipeline/internal/infra/adapters/credentials"
	"podcast-content-pipeline/internal/infra/adapters/platform"
	pg "podcast-content-pipeline/internal/infra/db/postgres"
	"podcast-content-pipeline/internal/infra/logging"
	"podcast-content-pipeline/internal/infra/metrics"
	red "podcast-content-pipeline/internal/infra/redis"
	"podcast-content-pipeline/internal/infra/scheduler"
	"podcast-content-pipeline/internal/infra/web"
	"podcast-content-pipeline/internal/infra/worker"
	"podcast-content-pipeline/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop-friendly)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	idemRegistry := red.NewIdempotencyRegistry(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobQueue := pg.NewJobQueue(pool, tm)
	transcriptRepo := pg.NewTranscriptRepo(pool)
	postRepo := pg.NewPostRepo(pool)
	eventRepo := pg.NewEventRepo(pool)

	// ---- Platform registry & credentials ----
	registry, err := platform.NewRegistry(cfg.Platforms)
	if err != nil {
		logger.Fatal().Err(err).Msg("platform registry")
	}
	credStore := credentials.NewEnvStore()

	// ---- AI providers ----
	transcriber, generator, err := buildAIProviders(ctx, cfg.AI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai provider")
	}
	aiLimiter := aiAdapters.NewLimiter(cfg.AI.ConcurrentLimit)
	transcriber = aiLimiter.Transcription(transcriber)
	generator = aiLimiter.Generation(generator)

	// ---- Use cases ----
	ingestUC := usecase.NewIngestUseCase(jobQueue, tm, logger)
	reviewUC := usecase.NewReviewUseCase(postRepo, eventRepo, registry, logger)
	statusUC := usecase.NewStatusUseCase(postRepo, eventRepo, transcriptRepo)

	// ---- Worker pool & job processor ----
	workerPool := worker.NewPool(cfg.Worker.Count, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	processor := worker.NewJobProcessor(
		jobQueue, transcriptRepo, postRepo,
		transcriber, generator, registry,
		cfg.Worker, cfg.AI, logger,
	)
	go processor.Start(ctx, workerPool)

	sweeper := worker.NewRetentionSweeper(time.Hour, cfg.Worker.Retention, jobQueue, locker, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Publish dispatcher ----
	dispatcher := scheduler.NewDispatcher(
		postRepo, eventRepo, registry, credStore,
		rateLimiter, idemRegistry,
		cfg.Scheduler, logger,
	)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// ---- HTTP API ----
	authManager := web.NewAuthManager(cfg.API.JWTSecret, !cfg.Runtime.Dev, cfg.API.SessionTTL)
	webServer := web.NewServer(ingestUC, reviewUC, statusUC, authManager, cfg.API.Key, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: webServer.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}

// buildAIProviders wires the configured provider. Gemini covers generation
// only; transcription falls back to OpenAI Whisper when a key is present.
func buildAIProviders(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.TranscriptionProvider, adapter.GenerationProvider, error) {
	switch cfg.Provider {
	case "openai":
		p, err := aiAdapters.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.TranscribeModel)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("provider", "openai").Str("chat_model", cfg.ChatModel).
			Str("transcribe_model", cfg.TranscribeModel).Msg("ai provider configured")
		return p, p, nil

	case "gemini":
		gen, err := aiAdapters.NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.ChatModel)
		if err != nil {
			return nil, nil, err
		}
		var transcriber adapter.TranscriptionProvider
		if cfg.OpenAIKey != "" {
			p, err := aiAdapters.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.TranscribeModel)
			if err != nil {
				return nil, nil, err
			}
			transcriber = p
			logger.Info().Str("provider", "gemini").Msg("ai provider configured, whisper transcription")
		} else {
			transcriber = aiAdapters.NewNoopProvider()
			logger.Warn().Str("provider", "gemini").Msg("no transcription key, using noop transcriber")
		}
		return transcriber, gen, nil

	case "noop":
		p := aiAdapters.NewNoopProvider()
		logger.Warn().Msg("noop ai provider configured, output is canned")
		return p, p, nil

	default:
		return nil, nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
