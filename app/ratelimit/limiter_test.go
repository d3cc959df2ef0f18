package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/recipe-comb/app/cache"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(store Store) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewLimiter(store, 10, time.Minute).WithClock(clock.Now), clock
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(cache.NewFromClient(client)), mr
}

func TestLimiter_Window(t *testing.T) {
	redisStore, _ := newRedisStore(t)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			limiter, clock := newTestLimiter(store)
			ctx := context.Background()

			for i := 0; i < 10; i++ {
				result, err := limiter.Check(ctx, "1.2.3.4")
				if err != nil {
					t.Fatalf("Check %d failed: %v", i+1, err)
				}
				if !result.Allowed {
					t.Fatalf("Expected check %d to be allowed", i+1)
				}
				if result.Remaining != 9-i {
					t.Errorf("Check %d: expected remaining %d, got %d", i+1, 9-i, result.Remaining)
				}
				clock.Advance(time.Second)
			}

			result, err := limiter.Check(ctx, "1.2.3.4")
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if result.Allowed {
				t.Error("Expected 11th check to be rejected")
			}
			if result.Remaining != 0 {
				t.Errorf("Expected remaining 0, got %d", result.Remaining)
			}

			// Reset is one window after the oldest retained request.
			expectedReset := time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)
			if !result.ResetAt.Equal(expectedReset) {
				t.Errorf("Expected reset %v, got %v", expectedReset, result.ResetAt)
			}

			clock.Advance(time.Minute)
			result, err = limiter.Check(ctx, "1.2.3.4")
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if !result.Allowed || result.Remaining != 9 {
				t.Errorf("Expected allowed with remaining 9 after window, got %+v", result)
			}

			other, _ := limiter.Check(ctx, "5.6.7.8")
			if !other.Allowed || other.Remaining != 9 {
				t.Errorf("Expected independent window per identifier, got %+v", other)
			}
		})
	}
}

func TestLimiter_ResetWhenEmpty(t *testing.T) {
	limiter, clock := newTestLimiter(NewMemoryStore())

	result, err := limiter.Check(context.Background(), "ip")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if !result.ResetAt.Equal(clock.now.Add(time.Minute)) {
		t.Errorf("Expected reset one window from now, got %v", result.ResetAt)
	}
	if result.ResetString() != "2024-05-01T12:01:00.000Z" {
		t.Errorf("Unexpected reset string: %s", result.ResetString())
	}
}

func TestLimiter_TimestampAtWindowEdgeIsDropped(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore(), 1, time.Minute)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	limiter.WithClock(clock.Now)
	ctx := context.Background()

	if r, _ := limiter.Check(ctx, "ip"); !r.Allowed {
		t.Fatal("Expected first check to be allowed")
	}

	clock.Advance(time.Minute)
	if r, _ := limiter.Check(ctx, "ip"); !r.Allowed {
		t.Error("Expected timestamp exactly one window old to be outside the window")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	limiter, clock := newTestLimiter(store)
	ctx := context.Background()

	limiter.Check(ctx, "old")
	clock.Advance(45 * time.Second)
	limiter.Check(ctx, "recent")
	clock.Advance(30 * time.Second)

	removed, err := limiter.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 identifier removed, got %d", removed)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 identifier left, got %d", store.Len())
	}
}

func TestRedisStore_Sweep(t *testing.T) {
	store, mr := newRedisStore(t)
	limiter, clock := newTestLimiter(store)
	ctx := context.Background()

	limiter.Check(ctx, "old")
	clock.Advance(45 * time.Second)
	limiter.Check(ctx, "recent")
	clock.Advance(30 * time.Second)

	mr.Set(redisKeyPrefix+"corrupt", "not json")

	removed, err := limiter.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 keys removed, got %d", removed)
	}
	if !mr.Exists(redisKeyPrefix + "recent") {
		t.Error("Expected recent window to be kept")
	}
	if mr.Exists(redisKeyPrefix + "old") {
		t.Error("Expected old window to be removed")
	}
}

func TestRedisStore_WindowExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	now := time.Now()
	if err := store.Set(ctx, "ip", []time.Time{now}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	timestamps, err := store.Get(ctx, "ip")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(timestamps) != 1 || timestamps[0].UnixMilli() != now.UnixMilli() {
		t.Errorf("Unexpected timestamps: %v", timestamps)
	}

	mr.FastForward(2 * time.Minute)
	timestamps, err = store.Get(ctx, "ip")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(timestamps) != 0 {
		t.Errorf("Expected expired window, got %v", timestamps)
	}
}
