// Package discovery resolves service base URLs through a local cache, a
// shared Redis cache and finally the service registry.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrServiceNotFound = errors.New("service not found")

// Lookup returns the host:port of healthy instances of a service.
type Lookup interface {
	ServiceAddresses(ctx context.Context, serviceName string) ([]string, error)
}

// Cache is a shared key/value cache for resolved URLs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type localEntry struct {
	url     string
	expires time.Time
}

type Resolver struct {
	lookup Lookup
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger

	now func() time.Time

	mu    sync.RWMutex
	local map[string]localEntry
}

// NewResolver builds a resolver. cache may be nil. Resolved URLs are kept
// for ttl, both locally and in cache.
func NewResolver(lookup Lookup, cache Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, cache: cache, ttl: ttl, logger: logger, now: time.Now, local: make(map[string]localEntry)}
}

// URL returns "http://host:port" for serviceName.
func (r *Resolver) URL(ctx context.Context, serviceName string) (string, error) {
	r.mu.RLock()
	entry, ok := r.local[serviceName]
	r.mu.RUnlock()
	if ok && r.now().Before(entry.expires) {
		return entry.url, nil
	}

	key := cacheKey(serviceName)
	if r.cache != nil {
		if url, err := r.cache.Get(ctx, key); err == nil && url != "" {
			r.remember(serviceName, url)
			return url, nil
		}
	}

	addrs, err := r.lookup.ServiceAddresses(ctx, serviceName)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("%s: %w", serviceName, ErrServiceNotFound)
	}
	url := "http://" + addrs[0]

	r.remember(serviceName, url)
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, url, r.ttl); err != nil {
			r.logger.Warn("Failed to cache service URL", zap.String("service", serviceName), zap.Error(err))
		}
	}
	return url, nil
}

// Forget drops the cached URL, locally and in the shared cache, so the
// next call asks the registry again.
func (r *Resolver) Forget(ctx context.Context, serviceName string) {
	r.mu.Lock()
	delete(r.local, serviceName)
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.Del(ctx, cacheKey(serviceName)); err != nil {
			r.logger.Warn("Failed to drop cached service URL", zap.String("service", serviceName), zap.Error(err))
		}
	}
}

func (r *Resolver) remember(serviceName, url string) {
	r.mu.Lock()
	r.local[serviceName] = localEntry{url: url, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()
}

func cacheKey(serviceName string) string {
	return "discovery:" + serviceName + ":url"
}

// RedisCache adapts a Redis client to Cache.
type RedisCache struct {
	client redis.Cmdable
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
