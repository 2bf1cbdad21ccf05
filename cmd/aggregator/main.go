package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/gometeo/weatherlookup/internal/config"
	"github.com/gometeo/weatherlookup/internal/events"
	"github.com/gometeo/weatherlookup/internal/logging"
	"github.com/gometeo/weatherlookup/internal/storage"
)

const (
	dbConnectAttempts = 5
	dbRetryDelay      = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("cannot load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.IsProduction(), cfg.LogLevel)
	logger.Info("starting lookup aggregator", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)

	for _, check := range []func() error{cfg.RequireDatabase, cfg.RequireKafka} {
		if err := check(); err != nil {
			logger.Error("configuration incomplete", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Postgres
	pool, err := storage.ConnectWithRetry(ctx, cfg.Database.DSN.Unmask(), dbConnectAttempts, dbRetryDelay, logger)
	if err != nil {
		logger.Error("cannot connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := storage.NewLookupStore(pool, logger)
	logger.Info("connected to postgres")

	// 2. Kafka consumer group
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.Group, saramaCfg)
	if err != nil {
		logger.Error("cannot create kafka consumer", "error", err)
		os.Exit(1)
	}

	wg := &sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()
		for err := range consumer.Errors() {
			logger.Error("kafka consumer error", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		handler := events.NewConsumerHandler(store, logger)
		for {
			if err := consumer.Consume(ctx, []string{cfg.Kafka.Topic}, handler); err != nil {
				logger.Error("kafka consume failed", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	// 3. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("stopping aggregator")
	cancel()
	if err := consumer.Close(); err != nil {
		logger.Error("kafka consumer close failed", "error", err)
	}
	wg.Wait()
}
