package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/recipe-comb/app/media"
	"github.com/lysyi3m/recipe-comb/app/ratelimit"
)

type MockRateLimitSweeper struct {
	mu      sync.Mutex
	calls   int
	removed int
	err     error
}

func (m *MockRateLimitSweeper) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.removed, m.err
}

func (m *MockRateLimitSweeper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type MockMediaSweeper struct {
	mu     sync.Mutex
	calls  int
	maxAge time.Duration
}

func (m *MockMediaSweeper) SweepStale(maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.maxAge = maxAge
	return 0, nil
}

func (m *MockMediaSweeper) TempDir() string {
	return "/tmp/recipe-comb"
}

func (m *MockMediaSweeper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type failingTask struct {
	Task
}

func (t *failingTask) Execute(ctx context.Context) error {
	return errors.New("mock error")
}

var (
	_ RateLimitSweeper = (*ratelimit.Limiter)(nil)
	_ MediaSweeper     = (*media.Pipeline)(nil)
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestNewScheduler(t *testing.T) {
	scheduler := NewScheduler(&MockRateLimitSweeper{}, &MockMediaSweeper{}, Options{
		Interval:    time.Second,
		WorkerCount: 2,
		MediaMaxAge: time.Hour,
	})

	if scheduler.workerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", scheduler.workerCount)
	}

	if scheduler.interval != time.Second {
		t.Errorf("Expected interval 1s, got %v", scheduler.interval)
	}

	if cap(scheduler.taskQueue) != taskQueueSize {
		t.Errorf("Expected queue size %d, got %d", taskQueueSize, cap(scheduler.taskQueue))
	}
}

func TestSchedulerRunsStartupTasks(t *testing.T) {
	rateLimits := &MockRateLimitSweeper{removed: 3}
	mediaSweeper := &MockMediaSweeper{}

	scheduler := NewScheduler(rateLimits, mediaSweeper, Options{
		Interval:    time.Hour,
		WorkerCount: 1,
		MediaMaxAge: 24 * time.Hour,
	})
	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool { return rateLimits.Calls() == 1 && mediaSweeper.Calls() == 1 })

	mediaSweeper.mu.Lock()
	defer mediaSweeper.mu.Unlock()
	if mediaSweeper.maxAge != 24*time.Hour {
		t.Errorf("Expected max age 24h, got %v", mediaSweeper.maxAge)
	}
}

func TestSchedulerSkipsDisabledTasks(t *testing.T) {
	scheduler := NewScheduler(nil, &MockMediaSweeper{}, Options{Interval: time.Hour, WorkerCount: 1})

	scheduler.enqueueTasks()

	if len(scheduler.taskQueue) != 0 {
		t.Errorf("Expected no tasks without sweepers or max age, got %d", len(scheduler.taskQueue))
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler := NewScheduler(nil, nil, Options{Interval: time.Hour, WorkerCount: 1})
	sweeper := &MockRateLimitSweeper{}

	for i := 0; i < taskQueueSize; i++ {
		if err := scheduler.EnqueueTask(NewSweepRateLimitsTask(sweeper)); err != nil {
			t.Fatalf("Unexpected error enqueueing task %d: %v", i, err)
		}
	}

	if err := scheduler.EnqueueTask(NewSweepRateLimitsTask(sweeper)); err == nil {
		t.Error("Expected error when queue is full")
	}

	scheduler.Stop()
	if err := scheduler.EnqueueTask(NewSweepRateLimitsTask(sweeper)); err == nil {
		t.Error("Expected error after stop")
	}
}

func TestExecuteTaskRetry(t *testing.T) {
	scheduler := NewScheduler(nil, nil, Options{Interval: time.Hour, WorkerCount: 1})
	defer scheduler.Stop()

	task := &failingTask{Task: NewTask(TaskTypeSweepRateLimits, "test")}
	task.MaxRetries = 1

	scheduler.executeTask(0, task)

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}
	if task.CanRetry() {
		t.Error("Expected no retries left")
	}
	if task.StartedAt == nil {
		t.Error("Expected task start to be recorded")
	}

	scheduler.executeTask(0, task)
	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count to stay 1, got %d", task.GetRetryCount())
	}
}

func TestSweepRateLimitsTask(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewLimiter(store, 5, time.Minute).WithClock(func() time.Time { return now })

	if _, err := limiter.Check(context.Background(), "a"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	now = now.Add(2 * time.Minute)

	task := NewSweepRateLimitsTask(limiter)
	if task.GetType() != TaskTypeSweepRateLimits {
		t.Errorf("Unexpected task type %s", task.GetType())
	}
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected expired window removed, got %d entries", store.Len())
	}

	failing := NewSweepRateLimitsTask(&MockRateLimitSweeper{err: errors.New("redis down")})
	if err := failing.Execute(context.Background()); err == nil {
		t.Error("Expected error from failing sweeper")
	}
}

func TestCleanupMediaTask(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "video-old.mp4")
	fresh := filepath.Join(dir, "video-new.mp3")
	for _, path := range []string{old, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	pipeline := media.NewPipeline(media.Config{TempDir: dir}, nil)
	task := NewCleanupMediaTask(pipeline, 24*time.Hour)

	if task.GetTarget() != dir {
		t.Errorf("Expected target %s, got %s", dir, task.GetTarget())
	}
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected stale file removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("Expected fresh file kept: %v", err)
	}
}
