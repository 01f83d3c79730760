package productname

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKey = "fulfillment:productnames"
	cacheTTL = 6 * time.Hour
)

// RedisConfig holds the connection settings for the mapping cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CachedSource serves the mapping from Redis and falls through to the
// underlying source on a miss. A Redis outage degrades to direct fetches
// rather than failing the run.
type CachedSource struct {
	source Source
	client *redis.Client
	logger *zap.Logger
}

// CachedSourceOption is a functional option for configuring the cache.
type CachedSourceOption func(*CachedSource)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) CachedSourceOption {
	return func(c *CachedSource) { c.logger = logger }
}

// WithClient uses an existing Redis client. The caller retains ownership.
func WithClient(client *redis.Client) CachedSourceOption {
	return func(c *CachedSource) { c.client = client }
}

// NewCachedSource wraps source with a Redis cache. When cfg is nil the cache
// is disabled and every Fetch goes to the source.
func NewCachedSource(source Source, cfg *RedisConfig, opts ...CachedSourceOption) (*CachedSource, error) {
	c := &CachedSource{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil && cfg != nil {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			c.logger.Warn("redis unreachable, product name cache disabled", zap.Error(err))
			client.Close()
		} else {
			c.client = client
		}
	}
	return c, nil
}

var _ Source = (*CachedSource)(nil)

// Fetch returns the cached mapping when fresh, otherwise loads from the
// source and refreshes the cache.
func (c *CachedSource) Fetch(ctx context.Context) (Mapping, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var mapping Mapping
			if json.Unmarshal(raw, &mapping) == nil {
				c.logger.Debug("product name mapping served from cache",
					zap.Int("entries", len(mapping)))
				return mapping, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.Error(err))
		}
	}

	mapping, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if raw, err := json.Marshal(mapping); err == nil {
			if err := c.client.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
				c.logger.Warn("cache write failed", zap.Error(err))
			}
		}
	}
	return mapping, nil
}

// Close releases the Redis connection if the cache owns one.
func (c *CachedSource) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
