package collection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/now"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/logger"
	"max.ks1230/rates-bot/internal/model/customerr"
	"max.ks1230/rates-bot/internal/model/rates"
)

const (
	requestMessage = "Please send today's USD and CNY rates with your markup, e.g.:\n93.15\n12.85"

	formatErrorMessage = "I expect one or two rate numbers, e.g. 93.15 and 12.85"
	encourageMessage   = "Got the %s rate 👍 Now send %s"
	savedMessage       = "Rates received and saved ✅"
	alreadyMessage     = "Today's rates are already recorded"
	cannotSaveMessage  = "Can't save the rates atm. Try later"

	managerReportMessage = "📊 Rates for %s:\n\n🇺🇸 USD: %s₽\n🇨🇳 CNY: %s₽"
	reportDateLayout     = "02.01.2006"
)

const defaultStorageTimeoutSeconds = 5

// DuplicatePolicy decides what a second submission for an already recorded
// date does.
type DuplicatePolicy string

const (
	// PolicyOverwrite silently replaces the existing record.
	PolicyOverwrite DuplicatePolicy = "overwrite"
	// PolicyReject keeps the existing record and tells the operator so.
	PolicyReject DuplicatePolicy = "reject"
)

type messageSender interface {
	SendMessage(text string, chatID int64) error
}

type ratesStorage interface {
	Upsert(ctx context.Context, rec rate.Record) error
	ExistsForDate(ctx context.Context, date time.Time) (bool, error)
}

// eventPublisher announces a stored record to downstream consumers.
// Publishing is fire-and-forget: a failure is logged, never surfaced.
type eventPublisher interface {
	PublishRateUpdated(date time.Time) error
}

type telegramConfig interface {
	OperatorID() int64
	ManagerChatID() int64
}

type appConfig interface {
	Timezone() string
	DuplicatePolicy() string
	USDThreshold() float64
	StorageTimeoutSeconds() int64
}

// Session is the conversational state machine gathering the two rates of one
// collection cycle. There is a single logical writer, but the mutex still
// serializes near-simultaneous operator messages against the trigger
// callbacks.
type Session struct {
	mu sync.Mutex

	sender    messageSender
	storage   ratesStorage
	publisher eventPublisher

	operatorID     int64
	managerChatID  int64
	policy         DuplicatePolicy
	usdThreshold   decimal.Decimal
	loc            *time.Location
	storageTimeout time.Duration

	awaiting  bool
	expected  map[rate.Field]bool
	collected map[rate.Field]decimal.Decimal
}

func NewSession(sender messageSender, storage ratesStorage, publisher eventPublisher,
	tgCfg telegramConfig, appCfg appConfig) *Session {
	timeout := time.Duration(appCfg.StorageTimeoutSeconds()) * time.Second
	if timeout <= 0 {
		timeout = defaultStorageTimeoutSeconds * time.Second
	}

	s := &Session{
		sender:         sender,
		storage:        storage,
		publisher:      publisher,
		operatorID:     tgCfg.OperatorID(),
		managerChatID:  tgCfg.ManagerChatID(),
		policy:         DuplicatePolicy(appCfg.DuplicatePolicy()),
		usdThreshold:   decimal.NewFromFloat(appCfg.USDThreshold()),
		loc:            location(appCfg.Timezone()),
		storageTimeout: timeout,
	}
	if s.policy != PolicyReject {
		s.policy = PolicyOverwrite
	}
	s.clear()
	return s
}

func location(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Start opens a new collection cycle, discarding any leftover state, and
// prompts the operator.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.clear()
	s.awaiting = true
	for _, f := range rate.Fields {
		s.expected[f] = true
	}
	s.mu.Unlock()

	logger.Info("rates requested from operator")
	if err := s.sender.SendMessage(requestMessage, s.operatorID); err != nil {
		tErr := &customerr.TransportError{Err: err}
		logger.Error("failed to request rates", zap.Error(tErr))
	}
}

// RepeatCheck re-sends the prompt if the cycle is still incomplete. It is a
// nudge only: partial progress stays untouched.
func (s *Session) RepeatCheck(ctx context.Context) {
	s.mu.Lock()
	pending := s.awaiting && len(s.expected) > 0
	s.mu.Unlock()

	if !pending {
		return
	}

	logger.Info("repeating rates request")
	if err := s.sender.SendMessage(requestMessage, s.operatorID); err != nil {
		tErr := &customerr.TransportError{Err: err}
		logger.Error("failed to repeat rates request", zap.Error(tErr))
	}
}

// HandleMessage processes one operator message and returns the reply to send.
// An empty reply means stay silent. Every path ends in a state transition or
// a no-op; nothing panics out of here.
func (s *Session) HandleMessage(ctx context.Context, text string, senderID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if senderID != s.operatorID {
		return "", customerr.ErrUnauthorizedSender
	}
	if !s.awaiting {
		// no active cycle, not our message to answer
		return "", nil
	}

	values, err := extractRates(text)
	if err != nil {
		return formatErrorMessage, err
	}

	s.assign(values)

	if missing := s.missingField(); missing != "" {
		filled := otherField(missing)
		return fmt.Sprintf(encourageMessage, filled, missing), nil
	}

	return s.complete(ctx)
}

// extractRates pulls decimal rate values out of free-form text, skipping
// words around them. The protocol accepts one or two numbers per message;
// anything else is a format error.
func extractRates(text string) ([]decimal.Decimal, error) {
	values := make([]decimal.Decimal, 0, len(rate.Fields))
	for _, token := range strings.Fields(text) {
		d, err := rates.ParseRate(token)
		if err != nil {
			continue
		}
		values = append(values, d)
	}

	switch {
	case len(values) == 0 || len(values) > len(rate.Fields):
		return nil, errors.Wrap(customerr.ErrInvalidNumber, "expected one or two numbers")
	case len(values) == 2 && values[0].Equal(values[1]):
		// equal values defeat the larger-is-USD rule
		return nil, errors.Wrap(customerr.ErrInvalidNumber, "cannot tell USD from CNY")
	}
	return values, nil
}

// assign maps parsed values onto fields. Two values: the larger one is USD —
// the two rates have never been within an order of magnitude of each other.
// One value: the single outstanding field if the other is already filled,
// otherwise whichever side of the configured threshold it falls on.
func (s *Session) assign(values []decimal.Decimal) {
	if len(values) == 2 {
		usd, cny := values[0], values[1]
		if cny.GreaterThan(usd) {
			usd, cny = cny, usd
		}
		s.put(rate.FieldUSD, usd)
		s.put(rate.FieldCNY, cny)
		return
	}

	s.put(s.classify(values[0]), values[0])
}

func (s *Session) classify(v decimal.Decimal) rate.Field {
	if len(s.expected) == 1 {
		for f := range s.expected {
			return f
		}
	}
	if v.GreaterThanOrEqual(s.usdThreshold) {
		return rate.FieldUSD
	}
	return rate.FieldCNY
}

func (s *Session) put(f rate.Field, v decimal.Decimal) {
	s.collected[f] = v
	delete(s.expected, f)
}

func (s *Session) missingField() rate.Field {
	for _, f := range rate.Fields {
		if s.expected[f] {
			return f
		}
	}
	return ""
}

func otherField(f rate.Field) rate.Field {
	if f == rate.FieldUSD {
		return rate.FieldCNY
	}
	return rate.FieldUSD
}

// complete normalizes and stores the collected pair. On storage failure the
// session state is preserved so the operator can retry; there is no
// background retry.
func (s *Session) complete(ctx context.Context) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "storeRates")
	defer span.Finish()

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	today := s.today()

	if s.policy == PolicyReject {
		exists, err := s.storage.ExistsForDate(ctx, today)
		if err != nil {
			ext.Error.Set(span, true)
			return cannotSaveMessage, err
		}
		if exists {
			s.clear()
			return alreadyMessage, customerr.ErrDuplicateDate
		}
	}

	usdMarkup := s.collected[rate.FieldUSD]
	cnyMarkup := s.collected[rate.FieldCNY]
	rec := rates.Normalize(today, usdMarkup, cnyMarkup)

	if err := s.storage.Upsert(ctx, rec); err != nil {
		ext.Error.Set(span, true)
		return cannotSaveMessage, err
	}

	observeStored()
	logger.Info("rates stored", zap.String("date", rec.Key()))

	s.notifyManager(today, usdMarkup, cnyMarkup)
	s.publishUpdate(today)
	s.clear()

	return savedMessage, nil
}

// notifyManager reports the operator's original markup values, not the
// stored bases: the manager chat wants the display rates.
func (s *Session) notifyManager(date time.Time, usdMarkup, cnyMarkup decimal.Decimal) {
	text := fmt.Sprintf(managerReportMessage,
		date.Format(reportDateLayout),
		usdMarkup.StringFixed(2),
		cnyMarkup.StringFixed(4))

	if err := s.sender.SendMessage(text, s.managerChatID); err != nil {
		tErr := &customerr.TransportError{Err: err}
		logger.Error("failed to notify manager", zap.Error(tErr))
	}
}

func (s *Session) publishUpdate(date time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRateUpdated(date); err != nil {
		logger.Error("failed to publish rate event", zap.Error(err))
	}
}

func (s *Session) today() time.Time {
	return now.New(time.Now().In(s.loc)).BeginningOfDay()
}

func (s *Session) clear() {
	s.awaiting = false
	s.expected = make(map[rate.Field]bool, len(rate.Fields))
	s.collected = make(map[rate.Field]decimal.Decimal, len(rate.Fields))
}
