package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"max.ks1230/spending-tracker/internal/api"
	"max.ks1230/spending-tracker/internal/clients/cache"
	"max.ks1230/spending-tracker/internal/config"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/gateway"
	"max.ks1230/spending-tracker/internal/model/ledger"
	"max.ks1230/spending-tracker/internal/model/reports"
	"max.ks1230/spending-tracker/internal/model/storage"
	"max.ks1230/spending-tracker/internal/tracing"
)

func main() {
	defer logger.Sync()
	logger.Info("Server init - start")

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

	server := api.New(conf.Server(), conf.App(), expenses, generator, gw)

	logger.Info("Server init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		changes, unsubscribe := gw.SubscribeAll()
		defer unsubscribe()
		generator.WatchChanges(ctx, changes)
		return nil
	})

	if err = g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
