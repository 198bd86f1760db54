package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/clients/cache"
	"max.ks1230/spending-tracker/internal/clients/kafka"
	"max.ks1230/spending-tracker/internal/config"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/reports"
	"max.ks1230/spending-tracker/internal/model/storage"
	"max.ks1230/spending-tracker/internal/tracing"
)

func main() {
	defer logger.Sync()
	logger.Info("Reporter init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
	}
	if !conf.Kafka().Enabled() {
		logger.Fatal("reporter needs kafka brokers and a reports topic")
	}

	closer, err := tracing.InitGlobal(conf.Jaeger())
	if err != nil {
		logger.Fatal("failed to init tracing:", zap.Error(err))
	}
	defer closer.Close()

	store, err := storage.Open(conf.Storage(), conf.Postgres(), conf.Sqlite())
	if err != nil {
		logger.Fatal("failed to init storage:", zap.Error(err))
	}
	defer store.Close()

	gw := gateway.New(store)
	generator := reports.NewGenerator(conf.App(), gw, nil)
	if conf.Memcached().Enabled() {
		mc, err := cache.NewMemcache(conf.Memcached())
		if err != nil {
			logger.Fatal("failed to init memcached:", zap.Error(err))
		}
		generator = reports.NewGenerator(conf.App(), gw, mc)
	}

	sender, err := reports.NewSender(conf.Grpc().AcceptorAddr())
	if err != nil {
		logger.Fatal("failed to init report sender", zap.Error(err))
	}
	defer sender.Close()

	consumer, err := kafka.NewConsumer(conf.Kafka(), generator, sender)
	if err != nil {
		logger.Fatal("failed to init kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	logger.Info("Reporter init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err = consumer.StartConsuming(ctx); err != nil {
		logger.Error("failed to consume", zap.Error(err))
	}
}
