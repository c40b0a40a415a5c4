package messages

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/logger"
	"max.ks1230/rates-bot/internal/model/customerr"
)

type messageSender interface {
	SendMessage(text string, chatID int64) error
}

// MessageHandler turns one incoming message into an optional reply. An empty
// reply means stay silent.
type MessageHandler interface {
	HandleMessage(ctx context.Context, text string, senderID int64) (string, error)
}

type Service struct {
	tgClient messageSender
	handler  MessageHandler
}

func NewService(tgClient messageSender, handler MessageHandler) *Service {
	return &Service{
		tgClient: tgClient,
		handler:  handler,
	}
}

type Message struct {
	Text   string
	UserID int64
}

func (s *Service) HandleIncomingMessage(ctx context.Context, msg Message) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "handleMessage")
	defer span.Finish()

	start := time.Now()
	err := s.handle(ctx, msg)
	elapsed := time.Since(start)

	observeResponse(elapsed, err != nil)
	if err != nil {
		ext.Error.Set(span, true)
	}
	return err
}

func (s *Service) handle(ctx context.Context, msg Message) error {
	resp, err := s.handler.HandleMessage(ctx, msg.Text, msg.UserID)

	if errors.Is(err, customerr.ErrUnauthorizedSender) {
		// deliberately no reply: strangers learn nothing about the protocol
		logger.Warn("ignoring message from unknown sender", zap.Int64("userID", msg.UserID))
		return nil
	}

	if resp != "" {
		if sendErr := s.tgClient.SendMessage(resp, msg.UserID); sendErr != nil {
			tErr := &customerr.TransportError{Err: sendErr}
			if err == nil {
				return tErr
			}
			logger.Error("failed to send reply", zap.Error(tErr))
		}
	}
	return err
}
