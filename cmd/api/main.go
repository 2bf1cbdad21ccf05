package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gometeo/weatherlookup/internal/api"
	"github.com/gometeo/weatherlookup/internal/api/handlers"
	"github.com/gometeo/weatherlookup/internal/cache"
	"github.com/gometeo/weatherlookup/internal/config"
	"github.com/gometeo/weatherlookup/internal/events"
	"github.com/gometeo/weatherlookup/internal/logging"
	"github.com/gometeo/weatherlookup/internal/openweather"
	"github.com/gometeo/weatherlookup/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("cannot load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.IsProduction(), cfg.LogLevel)
	logger.Info("starting weather lookup API",
		"env", cfg.Env,
		"port", cfg.HTTP.Port,
		"cache_ttl", cfg.Redis.CacheTTL(),
		"kafka", cfg.Kafka.Enabled())

	if err := cfg.RequireUpstream(); err != nil {
		logger.Error("configuration incomplete", "error", err)
		os.Exit(1)
	}
	if len(cfg.HTTP.AllowedHosts) == 0 {
		logger.Warn("ALLOWED_HOSTS is empty, cross-origin requests will be refused")
	}

	// 1. Redis: weather cache and rate limiter
	redisClient, err := cache.NewClient(cfg.Redis.URL.Unmask())
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	weatherCache := cache.New(redisClient, logger)
	defer weatherCache.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := weatherCache.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, serving without cache until it recovers", "error", err)
	} else {
		logger.Info("connected to redis")
	}
	cancelPing()

	limiter := cache.NewRateLimiter(redisClient, cfg.RateLimit.Count, cfg.RateLimit.Window())

	// 2. Upstream provider
	provider := openweather.New(openweather.Options{
		BaseURL: cfg.OpenWeather.BaseURL,
		APIKey:  cfg.OpenWeather.APIKey.Unmask(),
		Timeout: cfg.OpenWeather.Timeout,
	}, logger)

	health := map[string]handlers.Pinger{"redis": weatherCache}
	opts := handlers.Options{
		Provider: provider,
		Cache:    weatherCache,
		Health:   health,
		CacheTTL: cfg.Redis.CacheTTL(),
		Logger:   logger,
	}

	// 3. Optional: lookup statistics
	if cfg.Database.DSN != "" {
		pool, err := storage.Connect(context.Background(), cfg.Database.DSN.Unmask())
		if err != nil {
			logger.Error("cannot connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := storage.NewLookupStore(pool, logger)
		opts.Popular = store
		health["database"] = store
		logger.Info("connected to postgres")
	}

	if cfg.Kafka.Enabled() {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("cannot create kafka producer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka producer close failed", "error", err)
			}
		}()
		opts.Publisher = publisher
		logger.Info("publishing lookup events", "topic", cfg.Kafka.Topic)
	}

	// 4. HTTP
	router := api.NewRouter(api.RouterConfig{
		Handler:        handlers.NewWeatherHandler(opts),
		Limiter:        limiter,
		AllowedOrigins: cfg.HTTP.AllowedHosts,
		TrustProxy:     cfg.HTTP.TrustProxy,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serve(server, logger)
}

// serve runs the server until SIGINT or SIGTERM, then drains it.
func serve(server *http.Server, logger *slog.Logger) {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stopChan <- syscall.SIGTERM
		}
	}()

	<-stopChan
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped")
}
