package schedule

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"max.ks1230/rates-bot/internal/logger"
)

// collector is the collection session seen from the scheduler: the morning
// request and the later repeat nudge.
type collector interface {
	Start(ctx context.Context)
	RepeatCheck(ctx context.Context)
}

type config interface {
	RequestSpec() string
	RepeatSpec() string
}

type Trigger struct {
	cron *cron.Cron
}

func NewTrigger(session collector, cfg config, timezone string) (*Trigger, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.RequestSpec(), func() {
		logger.Info("schedule: requesting rates")
		session.Start(context.Background())
	})
	if err != nil {
		return nil, errors.Wrap(err, "request trigger")
	}

	_, err = c.AddFunc(cfg.RepeatSpec(), func() {
		logger.Info("schedule: repeat check")
		session.RepeatCheck(context.Background())
	})
	if err != nil {
		return nil, errors.Wrap(err, "repeat trigger")
	}

	return &Trigger{cron: c}, nil
}

func (t *Trigger) Run() {
	t.cron.Start()
}

func (t *Trigger) Stop() {
	t.cron.Stop()
}
