package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gometeo/weatherlookup/internal/cache"
	"github.com/gometeo/weatherlookup/internal/config"
	"github.com/gometeo/weatherlookup/internal/logging"
	"github.com/gometeo/weatherlookup/internal/openweather"
	"github.com/gometeo/weatherlookup/internal/storage"
	"github.com/gometeo/weatherlookup/internal/warmer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("cannot load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.IsProduction(), cfg.LogLevel)
	logger.Info("starting cache warmer",
		"interval", cfg.Warmer.Interval,
		"top_n", cfg.Warmer.TopN,
		"concurrency", cfg.Warmer.Concurrency)

	for _, check := range []func() error{cfg.RequireUpstream, cfg.RequireDatabase} {
		if err := check(); err != nil {
			logger.Error("configuration incomplete", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := storage.ConnectWithRetry(ctx, cfg.Database.DSN.Unmask(), 5, 3*time.Second, logger)
	if err != nil {
		logger.Error("cannot connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(cfg.Redis.URL.Unmask())
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	weatherCache := cache.New(redisClient, logger)
	defer weatherCache.Close()

	provider := openweather.New(openweather.Options{
		BaseURL: cfg.OpenWeather.BaseURL,
		APIKey:  cfg.OpenWeather.APIKey.Unmask(),
		Timeout: cfg.OpenWeather.Timeout,
	}, logger)

	w := warmer.New(
		storage.NewLookupStore(pool, logger),
		provider,
		weatherCache,
		warmer.Options{
			Interval:    cfg.Warmer.Interval,
			TopN:        cfg.Warmer.TopN,
			Concurrency: cfg.Warmer.Concurrency,
			TTL:         cfg.Redis.CacheTTL(),
		},
		logger,
	)

	if err := w.Run(ctx); err != nil {
		logger.Error("warmer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("warmer stopped")
}
