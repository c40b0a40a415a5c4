package kafka

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/logger"
)

type producerConfig interface {
	Brokers() []string
	RatesTopic() string
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(cfg producerConfig) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers(), config)
	return &Producer{
		producer: producer,
		topic:    cfg.RatesTopic(),
	}, err
}

func (p *Producer) PublishRateUpdated(date time.Time) error {
	payload, err := json.Marshal(RateEvent{Date: date.Format(rate.DateLayout)})
	if err != nil {
		return errors.Wrap(err, "marshal rate event")
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
	})
	return errors.Wrap(err, "publish rate event")
}

func (p *Producer) Close() {
	err := p.producer.Close()
	if err != nil {
		logger.Error("failed to close producer", zap.Error(err))
	}
}
