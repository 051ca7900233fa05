package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/dulcehogar/shop/internal/cache"
	"github.com/dulcehogar/shop/internal/config"
	"github.com/dulcehogar/shop/internal/invoice"
	"github.com/dulcehogar/shop/internal/lib/logger"
	"github.com/dulcehogar/shop/internal/messaging/kafka"
)

const serviceName = "shop"

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting invoice worker", slog.String("env", cfg.Env))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Error("failed to ping redis", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to ping redis"))
	}
	defer rdb.Close()

	appCache := cache.NewRedisCache(rdb, serviceName)
	_, subscriber := kafka.NewKafkaBroker(log, cfg.Kafka.Brokers)

	generator := invoice.NewGenerator(log, appCache, cfg.Invoice.BaseURL, cfg.Redis.InvoiceTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("consuming order-confirmed events",
		slog.String("topic", cfg.Kafka.OrdersTopic),
		slog.String("groupID", cfg.Kafka.InvoiceGroupID),
	)
	subscriber.Consume(ctx, cfg.Kafka.OrdersTopic, cfg.Kafka.InvoiceGroupID, generator.Handle)

	log.Info("invoice worker stopped")
}
