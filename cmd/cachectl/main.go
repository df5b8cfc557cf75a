package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/infra"
	"studio/internal/rendercache"
	"studio/internal/storage"
)

// cachectl is the operator's escape hatch: the caches have no automatic
// eviction, so clearing them is always an explicit maintenance action.
func main() {
	clearResults := flag.Bool("clear-results", false, "drop every cached enhancement result")
	clearRenders := flag.Bool("clear-renders", false, "drop the whole render index")
	invalidateDraft := flag.String("invalidate-draft", "", "remove cached renders for one draft id")
	flag.Parse()

	if !*clearResults && !*clearRenders && *invalidateDraft == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	if *clearResults {
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("REDIS_ADDR required to clear the result cache")
		}
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		if err := repo.NewRedisResultCache(client).Clear(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to clear result cache")
		}
		logger.Info().Msg("result cache cleared")
	}

	if *clearRenders || *invalidateDraft != "" {
		if cfg.DatabaseURL == "" {
			logger.Fatal().Msg("DATABASE_URL required for render cache maintenance")
		}
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		store, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open storage")
		}
		cache := rendercache.New(rendercache.Options{
			Index:  repo.NewPGRenderIndex(infra.NewSQLRunner(pool, logger)),
			Store:  store,
			Logger: logger,
		})
		if *invalidateDraft != "" {
			if err := cache.Invalidate(ctx, *invalidateDraft); err != nil {
				logger.Fatal().Err(err).Str("draft_id", *invalidateDraft).Msg("failed to invalidate draft")
			}
			logger.Info().Str("draft_id", *invalidateDraft).Msg("draft invalidated")
		}
		if *clearRenders {
			if err := cache.Clear(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to clear render index")
			}
			logger.Info().Msg("render index cleared")
		}
	}
}
