package serving

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/common/models"
	"github.com/cardioguard/platform/pkg/observability/metrics"
	"github.com/redis/go-redis/v9"
)

const DefaultHistoryKey = "cardioguard:history"

var ErrCacheMiss = errors.New("cache miss")

type HistoryCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// CachedLog serves History from a cache and invalidates it on every
// successful append. The TTL bounds staleness when an invalidation races a
// concurrent refill.
type CachedLog struct {
	inner PredictionLog
	cache HistoryCache
	key   string
	ttl   time.Duration
}

func NewCachedLog(inner PredictionLog, cache HistoryCache, ttl time.Duration) *CachedLog {
	return &CachedLog{inner: inner, cache: cache, key: DefaultHistoryKey, ttl: ttl}
}

func (l *CachedLog) Append(ctx context.Context, record *models.PredictionRecord) error {
	if err := l.inner.Append(ctx, record); err != nil {
		return err
	}
	if err := l.cache.Delete(ctx, l.key); err != nil {
		logger.Log.WithError(err).WithField("key", l.key).Warn("failed to invalidate history cache")
	}
	return nil
}

func (l *CachedLog) List(ctx context.Context) ([]models.PredictionRecord, error) {
	data, err := l.cache.Get(ctx, l.key)
	switch {
	case err == nil:
		var records []models.PredictionRecord
		jsonErr := json.Unmarshal(data, &records)
		if jsonErr == nil {
			metrics.ObserveCache(true)
			return records, nil
		}
		logger.Log.WithError(jsonErr).Warn("discarding undecodable history cache entry")
	case !errors.Is(err, ErrCacheMiss):
		logger.Log.WithError(err).Warn("history cache unavailable")
	}
	metrics.ObserveCache(false)

	records, err := l.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(records); err == nil {
		if err := l.cache.Set(ctx, l.key, encoded, l.ttl); err != nil {
			logger.Log.WithError(err).Warn("failed to refresh history cache")
		}
	}
	return records, nil
}
