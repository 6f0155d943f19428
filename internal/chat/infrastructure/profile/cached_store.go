package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a cached timezone is served before the
// repository is consulted again.
const DefaultCacheTTL = time.Hour

// Cache is the key/value store in front of the resolver. ok is false on a
// miss.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Resolver is the underlying timezone source.
type Resolver interface {
	Timezone(ctx context.Context, userID uuid.UUID) (string, error)
}

// CachedStore decorates a Resolver with a cache. Cache failures degrade to
// the underlying resolver, never to an error: the cache is an optimization
// on the slot-generation path, not a dependency.
type CachedStore struct {
	inner  Resolver
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore creates a cached resolver.
func NewCachedStore(inner Resolver, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// Timezone returns the cached zone when present, otherwise resolves and
// caches. Empty zones are cached too, so users without a profile do not hit
// the repository on every generation.
func (c *CachedStore) Timezone(ctx context.Context, userID uuid.UUID) (string, error) {
	key := cacheKey(userID)

	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("timezone cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return value, nil
	}

	zone, err := c.inner.Timezone(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, zone, c.ttl); err != nil {
		c.logger.Warn("timezone cache write failed", "user_id", userID, "error", err)
	}
	return zone, nil
}

func cacheKey(userID uuid.UUID) string {
	return "harbor:timezone:" + userID.String()
}

// RedisCache adapts a Redis client to the Cache interface.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get reads a key. A missing key is a miss, not an error.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes a key with the given TTL.
func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}
