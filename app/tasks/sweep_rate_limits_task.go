package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type SweepRateLimitsTask struct {
	Task
	sweeper RateLimitSweeper
}

func NewSweepRateLimitsTask(sweeper RateLimitSweeper) *SweepRateLimitsTask {
	return &SweepRateLimitsTask{
		Task:    NewTask(TaskTypeSweepRateLimits, "rate_limits"),
		sweeper: sweeper,
	}
}

func (t *SweepRateLimitsTask) Execute(ctx context.Context) error {
	removed, err := t.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep rate limits: %w", err)
	}

	if removed > 0 {
		slog.Debug("Rate limit windows swept", "removed", removed, "duration", t.GetDuration())
	}
	return nil
}
