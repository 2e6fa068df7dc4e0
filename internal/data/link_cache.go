package data

import (
	"context"
	"encoding/json"
	"time"

	"shortlink/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	linkCachePrefix = "link:"
	linkCacheTTL    = 10 * time.Minute
)

// LinkCache caches the hot-path link projection. Implementations handle
// cache misses gracefully by returning nil, nil; cache failures never
// fail the calling operation.
type LinkCache interface {
	// Get retrieves a projection by short code. Returns nil, nil on miss.
	Get(ctx context.Context, code string) (*domain.LinkProjection, error)

	// Set stores a projection.
	Set(ctx context.Context, p *domain.LinkProjection) error

	// Invalidate removes a projection from the cache.
	Invalidate(ctx context.Context, code string) error
}

// Compile-time interface checks
var (
	_ LinkCache = (*RedisLinkCache)(nil)
	_ LinkCache = (*noopLinkCache)(nil)
)

// RedisLinkCache implements LinkCache using Redis.
type RedisLinkCache struct {
	rdb *redis.Client
	log *log.Helper
}

// NewLinkCache creates the projection cache. Returns a no-op cache when
// Redis is not configured.
func NewLinkCache(d *Data, logger log.Logger) LinkCache {
	if d.rdb == nil {
		return &noopLinkCache{}
	}
	return &RedisLinkCache{
		rdb: d.rdb,
		log: log.NewHelper(logger),
	}
}

func (c *RedisLinkCache) cacheKey(code string) string {
	return linkCachePrefix + code
}

// Get retrieves a projection from Redis. Errors degrade to cache misses.
func (c *RedisLinkCache) Get(ctx context.Context, code string) (*domain.LinkProjection, error) {
	data, err := c.rdb.Get(ctx, c.cacheKey(code)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithContext(ctx).Warnf("failed to get projection from cache: %v", err)
		}
		return nil, nil
	}

	var p domain.LinkProjection
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.WithContext(ctx).Warnf("failed to unmarshal cached projection: %v", err)
		return nil, nil
	}
	return &p, nil
}

// Set stores a projection in Redis.
func (c *RedisLinkCache) Set(ctx context.Context, p *domain.LinkProjection) error {
	data, err := json.Marshal(p)
	if err != nil {
		c.log.WithContext(ctx).Warnf("failed to marshal projection for cache: %v", err)
		return nil
	}

	if err := c.rdb.Set(ctx, c.cacheKey(p.Code), data, linkCacheTTL).Err(); err != nil {
		c.log.WithContext(ctx).Warnf("failed to cache projection: %v", err)
	}
	return nil
}

// Invalidate removes a projection from Redis.
func (c *RedisLinkCache) Invalidate(ctx context.Context, code string) error {
	if err := c.rdb.Del(ctx, c.cacheKey(code)).Err(); err != nil {
		c.log.WithContext(ctx).Warnf("failed to invalidate projection cache: %v", err)
	}
	return nil
}

// noopLinkCache is used when Redis is not available.
type noopLinkCache struct{}

func (c *noopLinkCache) Get(context.Context, string) (*domain.LinkProjection, error) {
	return nil, nil
}

func (c *noopLinkCache) Set(context.Context, *domain.LinkProjection) error {
	return nil
}

func (c *noopLinkCache) Invalidate(context.Context, string) error {
	return nil
}
