package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/api"
	"max.ks1230/rates-bot/internal/clients/cache"
	"max.ks1230/rates-bot/internal/clients/kafka"
	"max.ks1230/rates-bot/internal/config"
	"max.ks1230/rates-bot/internal/logger"
	"max.ks1230/rates-bot/internal/model/storage"
	"max.ks1230/rates-bot/internal/tracing"
)

const serviceName = "rates-api"

const shutdownTimeout = 5 * time.Second

func main() {
	logger.Info("API init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
	}

	if err = tracing.Init(serviceName); err != nil {
		logger.Error("failed to init tracing:", zap.Error(err))
	}

	db, err := storage.NewPostgresStorage(conf.Postgres())
	if err != nil {
		logger.Fatal("failed to init postgres:", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// the cache is an optimization: without memcached the API still serves,
	// it just hits postgres every time
	var respCache api.ResponseCache
	mc, err := cache.NewMemcache(conf.Memcached())
	if err != nil {
		logger.Error("failed to init memcache, serving without cache:", zap.Error(err))
	} else {
		respCache = mc

		consumer, err := kafka.NewConsumer(conf.Kafka(), mc)
		if err != nil {
			logger.Fatal("failed to init kafka consumer:", zap.Error(err))
		}
		go func() {
			if err := consumer.StartConsuming(ctx); err != nil {
				logger.Error("failed to consume rate events:", zap.Error(err))
			}
		}()
	}

	handler := api.NewHandler(db, respCache, conf.App().Timezone())
	server := &http.Server{
		Addr:    ":" + conf.API().Port(),
		Handler: api.NewRouter(handler, conf.API().Static()),
	}

	go func() {
		logger.Info("API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to serve:", zap.Error(err))
		}
	}()

	logger.Info("API init - end")

	<-ctx.Done()
	logger.Info("Shutting down API")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server:", zap.Error(err))
	}
}
