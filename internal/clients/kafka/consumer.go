package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/logger"
)

type consumerConfig interface {
	producerConfig
	ConsumerGroup() string
}

// cacheInvalidator drops cached responses for a date after the bot replaces
// that date's record.
type cacheInvalidator interface {
	InvalidateRates(date string) error
}

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topic         string
	invalidator   cacheInvalidator
}

func NewConsumer(cfg consumerConfig, invalidator cacheInvalidator) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers(), cfg.ConsumerGroup(), config)
	return &Consumer{
		consumerGroup: consumerGroup,
		topic:         cfg.RatesTopic(),
		invalidator:   invalidator,
	}, err
}

func (c *Consumer) StartConsuming(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("consume from %s", c.topic))
			}
		}
	}
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - setup")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - cleanup")
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event RateEvent
		err := json.Unmarshal(message.Value, &event)
		if err != nil {
			logger.Error("cannot unmarshal kafka message", zap.Error(err))
		} else {
			logger.Info("received rate event", zap.String("date", event.Date))
			if err = c.invalidator.InvalidateRates(event.Date); err != nil {
				logger.Error("failed to invalidate cache", zap.Error(err))
			}
		}
		session.MarkMessage(message, "")
	}

	return nil
}
