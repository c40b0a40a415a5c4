package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/clients/kafka"
	"max.ks1230/rates-bot/internal/clients/tg"
	"max.ks1230/rates-bot/internal/config"
	"max.ks1230/rates-bot/internal/logger"
	"max.ks1230/rates-bot/internal/model/collection"
	"max.ks1230/rates-bot/internal/model/messages"
	"max.ks1230/rates-bot/internal/model/schedule"
	"max.ks1230/rates-bot/internal/model/storage"
	"max.ks1230/rates-bot/internal/tracing"
)

const serviceName = "rates-bot"

func main() {
	logger.Info("Bot init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config:", zap.Error(err))
	}

	if err = tracing.Init(serviceName); err != nil {
		logger.Error("failed to init tracing:", zap.Error(err))
	}

	client, err := tg.New(conf.Telegram())
	if err != nil {
		logger.Fatal("failed to init client:", zap.Error(err))
	}

	db, err := storage.NewPostgresStorage(conf.Postgres())
	if err != nil {
		logger.Fatal("failed to init postgres:", zap.Error(err))
	}

	producer, err := kafka.NewProducer(conf.Kafka())
	if err != nil {
		logger.Fatal("failed to init kafka producer:", zap.Error(err))
	}
	defer producer.Close()

	session := collection.NewSession(client, db, producer, conf.Telegram(), conf.App())
	msgService := messages.NewService(client, session)

	trigger, err := schedule.NewTrigger(session, conf.Schedule(), conf.App().Timezone())
	if err != nil {
		logger.Fatal("failed to init schedule:", zap.Error(err))
	}
	trigger.Run()
	defer trigger.Stop()

	logger.Info("Bot init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client.ListenUpdates(ctx, msgService)
}
