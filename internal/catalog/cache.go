package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"borehole-workers/internal/common/logger"
	"borehole-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "catalog:endpoints:"

// CachedSource is a read-through Redis cache in front of another Source.
// Cache failures are logged and bypassed.
type CachedSource struct {
	next   Source
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(next Source, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedSource {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CachedSource{next: next, redis: rdb, ttl: ttl, logger: log}
}

func CacheKey(f Filter) string {
	return cacheKeyPrefix + strings.Join([]string{
		strings.ToUpper(f.ResourceType), f.TypeName, NormalizeHost(f.Host),
	}, ":")
}

func (c *CachedSource) Endpoints(ctx context.Context, f Filter) ([]models.Endpoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey(f)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var eps []models.Endpoint
		if jsonErr := json.Unmarshal([]byte(val), &eps); jsonErr == nil {
			return eps, nil
		}
		c.logger.Warn("discarding corrupt catalog cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	eps, err := c.next.Endpoints(ctx, f)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(eps)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return eps, nil
}
