package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lysyi3m/recipe-comb/app/cache"
)

// Store holds the per-identifier request timestamps, oldest first.
type Store interface {
	Get(ctx context.Context, id string) ([]time.Time, error)
	Set(ctx context.Context, id string, timestamps []time.Time, ttl time.Duration) error
	// Sweep removes identifiers whose newest timestamp is not after cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// MemoryStore keeps windows in process memory. Lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]time.Time)}
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Time(nil), s.entries[id]...), nil
}

func (s *MemoryStore) Set(_ context.Context, id string, timestamps []time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = append([]time.Time(nil), timestamps...)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, timestamps := range s.entries {
		timestamps = retain(timestamps, cutoff)
		if len(timestamps) == 0 {
			delete(s.entries, id)
			removed++
			continue
		}
		s.entries[id] = timestamps
	}
	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

const redisKeyPrefix = "ratelimit:"

// RedisStore shares windows between instances. Each window is a JSON array of
// unix milliseconds that expires one window after the last write.
type RedisStore struct {
	cache *cache.Cache
}

func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]time.Time, error) {
	raw, found, err := s.cache.Get(ctx, redisKeyPrefix+id)
	if err != nil || !found {
		return nil, err
	}
	return decodeWindow(raw)
}

func (s *RedisStore) Set(ctx context.Context, id string, timestamps []time.Time, ttl time.Duration) error {
	if len(timestamps) == 0 {
		return s.cache.Delete(ctx, redisKeyPrefix+id)
	}

	millis := make([]int64, len(timestamps))
	for i, ts := range timestamps {
		millis[i] = ts.UnixMilli()
	}
	return s.cache.Set(ctx, redisKeyPrefix+id, millis, ttl)
}

func (s *RedisStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.cache.Keys(ctx, redisKeyPrefix+"*")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		raw, found, err := s.cache.Get(ctx, key)
		if err != nil {
			return removed, err
		}
		if !found {
			continue
		}

		timestamps, err := decodeWindow(raw)
		if err == nil && len(retain(timestamps, cutoff)) > 0 {
			continue
		}

		if err := s.cache.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func decodeWindow(raw string) ([]time.Time, error) {
	var millis []int64
	if err := json.Unmarshal([]byte(raw), &millis); err != nil {
		return nil, fmt.Errorf("failed to decode rate limit window: %w", err)
	}

	timestamps := make([]time.Time, len(millis))
	for i, ms := range millis {
		timestamps[i] = time.UnixMilli(ms)
	}
	return timestamps, nil
}
