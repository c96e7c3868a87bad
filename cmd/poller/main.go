package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/richardliu001/payment-intents/internal/config"
	"github.com/richardliu001/payment-intents/internal/database"
	"github.com/richardliu001/payment-intents/internal/logger"
	"github.com/richardliu001/payment-intents/internal/outbox"
	"github.com/richardliu001/payment-intents/internal/repo"
	"github.com/segmentio/kafka-go"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	pool, err := database.Open(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	kw := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer kw.Close()

	host, _ := os.Hostname()
	lease := outbox.NewRedisLease(rdb, cfg.Relay.LeaseKey, host+"-"+uuid.NewString(), cfg.Relay.LeaseTTL)

	repository := repo.NewRepository(pool.Gorm(), log)
	relay := outbox.NewRelay(repository, kw, lease, log, cfg.Relay.Interval, cfg.Relay.BatchSize)

	log.Info("outbox-poller started")
	relay.Run(ctx)
	return nil
}
