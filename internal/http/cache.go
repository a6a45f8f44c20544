package http

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stci-io/stci/internal/config"
	"github.com/stci-io/stci/internal/observability"
)

// Cache is the response cache for the read API. Values are marshaled
// response bodies keyed by endpoint.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// NewCache connects to Redis when a URL is configured and reachable,
// otherwise falls back to an in-process cache. The API serves correctly
// either way; Redis only shares the cache across replicas.
func NewCache(cfg *config.RedisConfig) Cache {
	if cfg == nil || cfg.URL == "" {
		return NewMemoryCache()
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		observability.FromContext(context.Background()).Warn(
			"invalid redis url, using in-memory cache", observability.Error(err))
		return NewMemoryCache()
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		observability.FromContext(ctx).Warn(
			"redis unreachable, using in-memory cache", observability.Error(err))
		return NewMemoryCache()
	}

	return &RedisCache{client: client}
}

// RedisCache is the shared cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		observability.FromContext(ctx).Warn("cache set failed", observability.Error(err))
	}
}

// MemoryCache is the single-process fallback.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem
}

type memItem struct {
	val []byte
	exp time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memItem)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !it.exp.IsZero() && time.Now().After(it.exp) {
		delete(c.items, key)
		return nil, false
	}
	return it.val, true
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.items[key] = memItem{val: val, exp: exp}
}
