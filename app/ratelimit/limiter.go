package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// ResetString formats ResetAt the way it is sent in X-RateLimit-Reset.
func (r Result) ResetString() string {
	return r.ResetAt.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Limiter is a sliding-window request counter keyed by client identifier.
// It is approximate: with a shared store, concurrent checks from several
// processes may each admit the last slot.
type Limiter struct {
	store       Store
	maxRequests int
	window      time.Duration
	now         func() time.Time
	mu          sync.Mutex
}

func NewLimiter(store Store, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		store:       store,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Window() time.Duration {
	return l.window
}

// Check records a request for id if the window still has room.
// Remaining reflects the count after this decision.
func (l *Limiter) Check(ctx context.Context, id string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	timestamps, err := l.store.Get(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load rate limit window: %w", err)
	}
	timestamps = retain(timestamps, windowStart)

	allowed := len(timestamps) < l.maxRequests
	remaining := max(0, l.maxRequests-len(timestamps))

	oldest := now
	if len(timestamps) > 0 {
		oldest = timestamps[0]
	}

	if allowed {
		timestamps = append(timestamps, now)
		remaining--
	}

	if err := l.store.Set(ctx, id, timestamps, l.window); err != nil {
		return Result{}, fmt.Errorf("failed to store rate limit window: %w", err)
	}

	return Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   oldest.Add(l.window),
	}, nil
}

// Sweep drops identifiers with no requests inside the current window.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	return l.store.Sweep(ctx, l.now().Add(-l.window))
}

// retain keeps timestamps strictly after windowStart.
func retain(timestamps []time.Time, windowStart time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	return kept
}
