package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/wikivault/wikivault/internal/errors"
)

// Scheduler runs the worker periodically until its context is cancelled.
// The worker's own single-flight guard means a pass that outlives the
// interval simply causes the next tick to be skipped.
type Scheduler struct {
	worker   *Worker
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. A nil logger falls back to slog.Default().
func NewScheduler(worker *Worker, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{worker: worker, interval: interval, logger: logger}
}

// Run executes an immediate pass, then one per interval, until ctx is
// cancelled. Pass errors are logged; the next tick is the retry.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	_, err := s.worker.RunOnce(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, errors.ErrSyncInProgress) {
		s.logger.Debug("skipping tick, previous pass still running")
		return
	}
	s.logger.Error("sync pass failed", "error", err)
}
