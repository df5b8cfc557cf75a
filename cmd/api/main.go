package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/normalize"
	"studio/internal/orchestrate"
	"studio/internal/providers/inference"
	"studio/internal/rendercache"
	"studio/internal/storage"
	"studio/internal/track"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	public, err := storage.NewPublicStore(store, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure public storage")
	}

	m := metrics.New()

	// Result cache: Redis when configured, in-process otherwise.
	var results domain.ResultCache
	if cfg.RedisAddr != "" {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		results = repo.NewRedisResultCache(client)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("result cache backed by redis")
	} else {
		results = repo.NewMemoryResultCache()
		logger.Warn().Msg("REDIS_ADDR unset; result cache is in-memory")
	}

	// Render index: Postgres when configured, in-process otherwise.
	var index domain.RenderIndex
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		index = repo.NewPGRenderIndex(infra.NewSQLRunner(pool, logger))
		logger.Info().Msg("render index backed by postgres")
	} else {
		index = repo.NewMemoryRenderIndex()
		logger.Warn().Msg("DATABASE_URL unset; render index is in-memory")
	}

	var provider inference.Provider
	if cfg.InferenceAPIKey != "" {
		provider = inference.NewClient(inference.Options{
			BaseURL: cfg.InferenceBaseURL,
			APIKey:  cfg.InferenceAPIKey,
		})
	} else {
		provider = inference.NewSynthetic()
		logger.Warn().Msg("INFERENCE_API_KEY unset; using synthetic provider")
	}

	tracker := track.New(track.Options{
		Provider:     provider,
		Logger:       logger,
		Metrics:      m,
		PollInterval: cfg.PollInterval,
		CallbackURL:  cfg.InferenceCallback,
	})
	orch := orchestrate.New(orchestrate.Options{
		Normalizer: normalize.New(normalize.Options{
			Uploader:     public,
			MaxDimension: cfg.MaxImageDimension,
			Logger:       logger,
		}),
		Results:  results,
		Tracker:  tracker,
		Logger:   logger,
		Metrics:  m,
		HitDelay: cfg.CacheHitDelay,
	})
	renders := rendercache.New(rendercache.Options{
		Index:   index,
		Store:   store,
		Logger:  logger,
		Metrics: m,
	})

	app := handlers.NewApp(logger, orch, tracker, renders, m)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
