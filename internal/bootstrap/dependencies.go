// Package bootstrap assembles the Gemini-backed collaborators shared by the
// API server and the studio CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"brandstudio/internal/infra"
	"brandstudio/internal/providers/gemini"
	"brandstudio/internal/providers/image"
	"brandstudio/internal/providers/strategy"
	"brandstudio/internal/providers/style"
	"brandstudio/internal/session"
)

// Dependencies returns the session collaborators for cfg together with a
// cleanup func. Style suggestions are cached in Redis when REDIS_URL is set.
func Dependencies(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (session.Dependencies, func(), error) {
	client, err := gemini.NewClient(ctx, gemini.Options{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL})
	if err != nil {
		return session.Dependencies{}, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
	}

	generator, err := image.NewGeminiGenerator(image.GeminiOptions{
		Models: client.Models,
		Model:  cfg.GeminiImageModel,
		Logger: logger,
	})
	if err != nil {
		return session.Dependencies{}, nil, fmt.Errorf("bootstrap: image generator: %w", err)
	}

	analyzer := strategy.NewGeminiAnalyzer(strategy.GeminiOptions{
		Models: client.Models,
		Model:  cfg.GeminiTextModel,
		Logger: logger,
	})

	var suggester style.Suggester = style.NewGeminiSuggester(style.GeminiOptions{
		Models: client.Models,
		Model:  cfg.GeminiTextModel,
		Logger: logger,
	})

	var rdb *redis.Client
	rdb, err = infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("bootstrap: redis unavailable, style cache disabled")
		rdb = nil
	}
	if rdb != nil {
		suggester = style.NewCachedSuggester(suggester, style.NewRedisCache(rdb), cfg.StyleCacheTTL, logger)
		logger.Info().Dur("ttl", cfg.StyleCacheTTL).Msg("bootstrap: style cache enabled")
	}

	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return session.Dependencies{
		Analyzer:  analyzer,
		Suggester: suggester,
		Generator: generator,
		Logger:    logger,
	}, cleanup, nil
}
