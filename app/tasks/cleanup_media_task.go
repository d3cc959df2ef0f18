package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/recipe-comb/app/metrics"
)

type CleanupMediaTask struct {
	Task
	sweeper MediaSweeper
	maxAge  time.Duration
}

func NewCleanupMediaTask(sweeper MediaSweeper, maxAge time.Duration) *CleanupMediaTask {
	return &CleanupMediaTask{
		Task:    NewTask(TaskTypeCleanupMedia, sweeper.TempDir()),
		sweeper: sweeper,
		maxAge:  maxAge,
	}
}

func (t *CleanupMediaTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := t.sweeper.SweepStale(t.maxAge)
	if removed > 0 {
		metrics.RecordMediaRemoved(removed)
		slog.Info("Stale media files removed", "dir", t.Target, "removed", removed, "max_age", t.maxAge.String())
	}
	if err != nil {
		return fmt.Errorf("failed to clean up media in %s: %w", t.Target, err)
	}
	return nil
}
