package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ariefcatur/go-poster-orders/internal/config"
	kafkax "github.com/ariefcatur/go-poster-orders/internal/kafka"
	"github.com/ariefcatur/go-poster-orders/internal/logging"
	"github.com/ariefcatur/go-poster-orders/internal/notifier"
	"github.com/ariefcatur/go-poster-orders/internal/orders"
	"github.com/ariefcatur/go-poster-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	name := cfg.ServiceName + "-notifier"
	logger, err := logging.New(name, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	svc := &notifier.Service{
		Redis:       rdb,
		Feed:        &redisx.Feed{RDB: rdb, Size: cfg.FeedSize},
		Log:         logger,
		ServiceName: name,
	}

	// One consumer per topic, same group.
	var wg sync.WaitGroup
	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topic, cfg.NotifierWorkers, logger)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			logger.Info("consumer started",
				zap.String("group", cfg.NotifierGroup),
				zap.String("topic", topic),
				zap.Int("workers", cfg.NotifierWorkers))
			if err := cons.Start(ctx, svc.Handle); err != nil {
				logger.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumers")
	cancel()
	wg.Wait()
}
