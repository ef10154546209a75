package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	syncpkg "github.com/arcanthyr/backend/internal/sync"
	"github.com/arcanthyr/backend/pkg/logger"
)

// Scheduler triggers sync runs on a fixed interval. Overlap with manual
// triggers is harmless: the run lease rejects the second starter and
// dedupe-on-discovery makes re-invocation safe.
type Scheduler struct {
	orchestrator *syncpkg.Orchestrator
	interval     time.Duration
}

func New(orchestrator *syncpkg.Orchestrator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{orchestrator: orchestrator, interval: interval}
}

// Start blocks until ctx is cancelled, running one sync per interval.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("Sync scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.orchestrator.Run(ctx)
	if errors.Is(err, syncpkg.ErrRunInProgress) {
		logger.Debug("Scheduled sync skipped, run already in progress")
		return
	}
	if err != nil {
		logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}

	logger.Info("Scheduled sync complete",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("failed", result.FailedCount),
	)
}
