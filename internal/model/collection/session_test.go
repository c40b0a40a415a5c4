package collection

import (
	"context"
	"testing"
	"time"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/model/customerr"
)

const (
	operatorID  = int64(111)
	strangerID  = int64(222)
	managerChat = int64(-100500)
)

type sentMessage struct {
	text   string
	chatID int64
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(text string, chatID int64) error {
	f.sent = append(f.sent, sentMessage{text, chatID})
	return f.err
}

func (f *fakeSender) toChat(chatID int64) []sentMessage {
	res := make([]sentMessage, 0)
	for _, m := range f.sent {
		if m.chatID == chatID {
			res = append(res, m)
		}
	}
	return res
}

type fakeStorage struct {
	records   map[string]rate.Record
	upsertErr error
	existsErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{records: make(map[string]rate.Record)}
}

func (f *fakeStorage) Upsert(_ context.Context, rec rate.Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[rec.Key()] = rec
	return nil
}

func (f *fakeStorage) ExistsForDate(_ context.Context, date time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.records[date.Format(rate.DateLayout)]
	return ok, nil
}

type fakePublisher struct {
	published []time.Time
}

func (f *fakePublisher) PublishRateUpdated(date time.Time) error {
	f.published = append(f.published, date)
	return nil
}

type fakeTelegramConfig struct{}

func (fakeTelegramConfig) OperatorID() int64    { return operatorID }
func (fakeTelegramConfig) ManagerChatID() int64 { return managerChat }

type fakeAppConfig struct {
	policy string
}

func (f fakeAppConfig) Timezone() string             { return "UTC" }
func (f fakeAppConfig) DuplicatePolicy() string      { return f.policy }
func (f fakeAppConfig) USDThreshold() float64        { return 30 }
func (f fakeAppConfig) StorageTimeoutSeconds() int64 { return 5 }

func newTestSession(policy string) (*Session, *fakeSender, *fakeStorage, *fakePublisher) {
	sender := &fakeSender{}
	storage := newFakeStorage()
	publisher := &fakePublisher{}
	s := NewSession(sender, storage, publisher, fakeTelegramConfig{}, fakeAppConfig{policy: policy})
	return s, sender, storage, publisher
}

func todayKey() string {
	return now.New(time.Now().UTC()).BeginningOfDay().Format(rate.DateLayout)
}

func Test_OnStart_ShouldPromptOperator(t *testing.T) {
	s, sender, _, _ := newTestSession("overwrite")

	s.Start(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, operatorID, sender.sent[0].chatID)
	assert.Equal(t, requestMessage, sender.sent[0].text)
}

func Test_OnStrangerMessage_ShouldStaySilent(t *testing.T) {
	s, sender, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())
	promptCount := len(sender.sent)

	reply, err := s.HandleMessage(context.Background(), "93.15\n12.85", strangerID)

	assert.Empty(t, reply)
	assert.ErrorIs(t, err, customerr.ErrUnauthorizedSender)
	assert.Len(t, sender.sent, promptCount)
	assert.Empty(t, storage.records)
}

func Test_OnMessageWithoutActiveCycle_ShouldStaySilent(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")

	reply, err := s.HandleMessage(context.Background(), "93.15\n12.85", operatorID)

	assert.Empty(t, reply)
	assert.NoError(t, err)
	assert.Empty(t, storage.records)
}

func Test_OnBothRatesInOneMessage_ShouldStoreAndNotify(t *testing.T) {
	s, sender, storage, publisher := newTestSession("overwrite")
	s.Start(context.Background())

	reply, err := s.HandleMessage(context.Background(), "93.15\n12.85", operatorID)

	assert.NoError(t, err)
	assert.Equal(t, savedMessage, reply)

	rec, ok := storage.records[todayKey()]
	require.True(t, ok)
	assert.Equal(t, int64(9215), rec.UstBaseSubunits)
	assert.Equal(t, int64(1259), rec.CnyBaseSubunits)
	assert.Equal(t, int64(9315), rec.UstMarkupSubunits)
	assert.Equal(t, int64(1284), rec.CnyMarkupSubunits)

	managerMsgs := sender.toChat(managerChat)
	require.Len(t, managerMsgs, 1)
	assert.Contains(t, managerMsgs[0].text, "93.15")
	assert.Contains(t, managerMsgs[0].text, "12.8500")

	require.Len(t, publisher.published, 1)
}

func Test_OnSwappedOrder_ShouldAssignLargerToUSD(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())

	_, err := s.HandleMessage(context.Background(), "12.85 93.15", operatorID)

	assert.NoError(t, err)
	rec := storage.records[todayKey()]
	assert.Equal(t, int64(9215), rec.UstBaseSubunits)
	assert.Equal(t, int64(1259), rec.CnyBaseSubunits)
}

func Test_OnSingleRate_ShouldEncourageAndKeepPartialState(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())

	reply, err := s.HandleMessage(context.Background(), "93.15", operatorID)

	assert.NoError(t, err)
	assert.Contains(t, reply, "CNY")
	assert.Empty(t, storage.records)

	reply, err = s.HandleMessage(context.Background(), "12.85", operatorID)

	assert.NoError(t, err)
	assert.Equal(t, savedMessage, reply)
	rec := storage.records[todayKey()]
	assert.Equal(t, int64(9215), rec.UstBaseSubunits)
	assert.Equal(t, int64(1259), rec.CnyBaseSubunits)
}

func Test_OnSingleSmallRateFirst_ShouldClassifyAsCNY(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())

	reply, err := s.HandleMessage(context.Background(), "12.85", operatorID)

	assert.NoError(t, err)
	assert.Contains(t, reply, "USD")

	_, err = s.HandleMessage(context.Background(), "93.15", operatorID)

	assert.NoError(t, err)
	rec := storage.records[todayKey()]
	assert.Equal(t, int64(9215), rec.UstBaseSubunits)
	assert.Equal(t, int64(1259), rec.CnyBaseSubunits)
}

func Test_OnUnparseableMessage_ShouldReplyFormatError(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())

	reply, err := s.HandleMessage(context.Background(), "hello there", operatorID)

	assert.Equal(t, formatErrorMessage, reply)
	assert.ErrorIs(t, err, customerr.ErrInvalidNumber)
	assert.Empty(t, storage.records)

	// the cycle survives a bad message
	_, err = s.HandleMessage(context.Background(), "93.15 12.85", operatorID)
	assert.NoError(t, err)
	assert.Len(t, storage.records, 1)
}

func Test_OnEqualNumbers_ShouldReplyFormatError(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())

	reply, err := s.HandleMessage(context.Background(), "50 50", operatorID)

	assert.Equal(t, formatErrorMessage, reply)
	assert.ErrorIs(t, err, customerr.ErrInvalidNumber)
	assert.Empty(t, storage.records)
}

func Test_OnWordsAroundNumbers_ShouldStillExtract(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())

	_, err := s.HandleMessage(context.Background(), "usd 93.15 cny 12.85", operatorID)

	assert.NoError(t, err)
	assert.Len(t, storage.records, 1)
}

func Test_OnDuplicateDateWithRejectPolicy_ShouldKeepFirstRecord(t *testing.T) {
	s, _, storage, publisher := newTestSession("reject")
	s.Start(context.Background())

	_, err := s.HandleMessage(context.Background(), "93.15 12.85", operatorID)
	require.NoError(t, err)
	first := storage.records[todayKey()]

	s.Start(context.Background())
	reply, err := s.HandleMessage(context.Background(), "95.00 13.00", operatorID)

	assert.Equal(t, alreadyMessage, reply)
	assert.ErrorIs(t, err, customerr.ErrDuplicateDate)
	assert.Equal(t, first, storage.records[todayKey()])
	assert.Len(t, publisher.published, 1)
}

func Test_OnDuplicateDateWithOverwritePolicy_ShouldReplaceAllFields(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())
	_, err := s.HandleMessage(context.Background(), "93.15 12.85", operatorID)
	require.NoError(t, err)

	s.Start(context.Background())
	_, err = s.HandleMessage(context.Background(), "95.00 13.26", operatorID)
	require.NoError(t, err)

	rec := storage.records[todayKey()]
	assert.Equal(t, int64(9400), rec.UstBaseSubunits)
	assert.Equal(t, int64(1300), rec.CnyBaseSubunits)
	assert.Equal(t, int64(9500), rec.UstMarkupSubunits)
	assert.Equal(t, int64(1326), rec.CnyMarkupSubunits)
}

func Test_OnStorageFailure_ShouldKeepStateForRetry(t *testing.T) {
	s, _, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())
	storage.upsertErr = &customerr.StorageError{Err: errors.New("connection refused")}

	reply, err := s.HandleMessage(context.Background(), "93.15 12.85", operatorID)

	assert.Equal(t, cannotSaveMessage, reply)
	assert.Error(t, err)
	assert.Empty(t, storage.records)

	storage.upsertErr = nil
	reply, err = s.HandleMessage(context.Background(), "93.15 12.85", operatorID)

	assert.NoError(t, err)
	assert.Equal(t, savedMessage, reply)
	assert.Len(t, storage.records, 1)
}

func Test_OnRepeatCheckWithPendingCycle_ShouldNudgeWithoutReset(t *testing.T) {
	s, sender, storage, _ := newTestSession("overwrite")
	s.Start(context.Background())
	_, err := s.HandleMessage(context.Background(), "93.15", operatorID)
	require.NoError(t, err)

	s.RepeatCheck(context.Background())

	operatorMsgs := sender.toChat(operatorID)
	require.Len(t, operatorMsgs, 2)
	assert.Equal(t, requestMessage, operatorMsgs[1].text)

	// the USD value collected before the nudge still counts
	_, err = s.HandleMessage(context.Background(), "12.85", operatorID)
	assert.NoError(t, err)
	assert.Equal(t, int64(9215), storage.records[todayKey()].UstBaseSubunits)
}

func Test_OnRepeatCheckWhenIdle_ShouldDoNothing(t *testing.T) {
	s, sender, _, _ := newTestSession("overwrite")

	s.RepeatCheck(context.Background())

	assert.Empty(t, sender.sent)
}

func Test_OnRepeatCheckAfterCompletion_ShouldDoNothing(t *testing.T) {
	s, sender, _, _ := newTestSession("overwrite")
	s.Start(context.Background())
	_, err := s.HandleMessage(context.Background(), "93.15 12.85", operatorID)
	require.NoError(t, err)
	before := len(sender.toChat(operatorID))

	s.RepeatCheck(context.Background())

	assert.Len(t, sender.toChat(operatorID), before)
}
