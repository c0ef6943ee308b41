package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"repricer-service/internal/models"
	"repricer-service/internal/util"
)

const redisKeyPrefix = "competitors:"

// RedisCache is a Redis-backed PriceCache. The TTL is enforced twice: once
// by Redis key expiry and once against the stored ExpiresAt, so a clock
// skew on the Redis side still never serves a stale set. Cache errors are
// logged and treated as misses; the caller falls back to a live fetch.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisCache creates a PriceCache on an existing Redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		logger: util.NamedLogger("price-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (models.CompetitorPriceSet, bool) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return models.CompetitorPriceSet{}, false
	}
	if err != nil {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return models.CompetitorPriceSet{}, false
	}

	var set models.CompetitorPriceSet
	if err := json.Unmarshal(raw, &set); err != nil {
		c.logger.Warn("Cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.rdb.Del(ctx, redisKeyPrefix+key)
		return models.CompetitorPriceSet{}, false
	}
	if set.Expired(time.Now()) {
		c.rdb.Del(ctx, redisKeyPrefix+key)
		return models.CompetitorPriceSet{}, false
	}
	return set, true
}

func (c *RedisCache) Set(ctx context.Context, set models.CompetitorPriceSet) {
	raw, err := json.Marshal(set)
	if err != nil {
		c.logger.Warn("Cache entry marshal failed", zap.String("key", set.Key), zap.Error(err))
		return
	}

	ttl := time.Until(set.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+set.Key, raw, ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", set.Key), zap.Error(err))
	}
}
