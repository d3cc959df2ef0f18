package transcribe

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/recipe-comb/app/cache"
)

// Cache stores finished transcripts by caller-chosen key. Losing an entry only
// costs a repeated API call.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, transcript string) error
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	transcript, ok := c.entries[key]
	return transcript, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, transcript string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = transcript
	return nil
}

const redisKeyPrefix = "transcription"

// RedisCache shares transcripts between instances.
type RedisCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{cache: c, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	return c.cache.Get(ctx, cache.GenerateKey(redisKeyPrefix, key))
}

func (c *RedisCache) Set(ctx context.Context, key, transcript string) error {
	return c.cache.Set(ctx, cache.GenerateKey(redisKeyPrefix, key), transcript, c.ttl)
}
