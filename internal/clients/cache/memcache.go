package cache

import (
	"github.com/pkg/errors"

	"go.uber.org/zap"

	"github.com/bradfitz/gomemcache/memcache"

	"max.ks1230/rates-bot/internal/logger"
)

// Cached entries expire on their own after a day; the kafka invalidation
// path only matters for same-day overwrites.
const expirationSeconds = 24 * 60 * 60

const (
	todayKeyPrefix = "rates:today:"
	// LatestKey caches the newest record regardless of date.
	LatestKey = "rates:latest"
)

// TodayKey builds the cache key for one day's response body.
func TodayKey(date string) string {
	return todayKeyPrefix + date
}

type MemcacheClient struct {
	client *memcache.Client
}

type config interface {
	Hosts() []string
}

func NewMemcache(config config) (*MemcacheClient, error) {
	logger.Info("memcached hosts", zap.Strings("hosts", config.Hosts()))
	mc := memcache.New(config.Hosts()...)
	return &MemcacheClient{mc}, mc.Ping()
}

func (mc *MemcacheClient) CacheRates(key string, body []byte) error {
	return mc.client.Set(&memcache.Item{
		Key:        key,
		Value:      body,
		Expiration: expirationSeconds,
	})
}

func (mc *MemcacheClient) GetRates(key string) ([]byte, error) {
	item, err := mc.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// InvalidateRates drops the cached responses affected by a new record for
// date. A missing key is not an error.
func (mc *MemcacheClient) InvalidateRates(date string) error {
	logger.Info("invalidate rates cache", zap.String("date", date))

	for _, key := range []string{TodayKey(date), LatestKey} {
		err := mc.client.Delete(key)
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return err
		}
	}
	return nil
}
