package tasks

import (
	"context"
	"time"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to run periodic maintenance in the background.
// Example usage:
//
//	scheduler := NewScheduler(limiter, pipeline, Options{...})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCleanupMediaTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// RateLimitSweeper drops expired rate limit windows.
type RateLimitSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// MediaSweeper removes temporary media files left behind by interrupted runs.
type MediaSweeper interface {
	SweepStale(maxAge time.Duration) (int, error)
	TempDir() string
}
