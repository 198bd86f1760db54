package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"max.ks1230/spending-tracker/internal/clients/cache"
	"max.ks1230/spending-tracker/internal/clients/kafka"
	"max.ks1230/spending-tracker/internal/clients/tg"
	"max.ks1230/spending-tracker/internal/config"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/ledger"
	"max.ks1230/spending-tracker/internal/model/messages"
	"max.ks1230/spending-tracker/internal/model/reports"
	"max.ks1230/spending-tracker/internal/model/storage"
	"max.ks1230/spending-tracker/internal/tracing"
)

func main() {
	defer logger.Sync()
	logger.Info("Bot init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
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
	expenses := ledger.New(store, gw)

	generator := reports.NewGenerator(conf.App(), gw, nil)
	if conf.Memcached().Enabled() {
		mc, err := cache.NewMemcache(conf.Memcached())
		if err != nil {
			logger.Fatal("failed to init memcached:", zap.Error(err))
		}
		generator = reports.NewGenerator(conf.App(), gw, mc)
	}

	client, err := tg.New(conf.Telegram())
	if err != nil {
		logger.Fatal("failed to init client:", zap.Error(err))
	}

	var msgService *messages.Service
	if conf.Kafka().Enabled() {
		producer, err := kafka.NewProducer(conf.Kafka())
		if err != nil {
			logger.Fatal("failed to init kafka producer", zap.Error(err))
		}
		defer producer.Close()
		msgService = messages.NewService(client, expenses, generator, producer, conf.App())
	} else {
		msgService = messages.NewService(client, expenses, generator, nil, conf.App())
	}

	acceptor, err := reports.NewServer(conf.Grpc().ListenPort(), msgService)
	if err != nil {
		logger.Fatal("failed to init report acceptor", zap.Error(err))
	}

	logger.Info("Bot init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		client.ListenUpdates(ctx, msgService)
		return nil
	})
	g.Go(acceptor.Serve)
	g.Go(func() error {
		<-ctx.Done()
		acceptor.Shutdown()
		return nil
	})
	g.Go(func() error {
		changes, unsubscribe := gw.SubscribeAll()
		defer unsubscribe()
		generator.WatchChanges(ctx, changes)
		return nil
	})

	if err = g.Wait(); err != nil {
		logger.Error("bot stopped with error", zap.Error(err))
	}
}
