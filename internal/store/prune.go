package store

// prune.go keeps the run history bounded. It runs once at start and then on
// every tick until its context is cancelled; a failed pass is logged and
// retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// StartPruneScheduler deletes runs older than retention every interval.
// It blocks until ctx is cancelled.
func (s *Store) StartPruneScheduler(ctx context.Context, retention, interval time.Duration) {
	slog.Info("history prune scheduler started", "retention", retention, "interval", interval)

	s.pruneOnce(ctx, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history prune scheduler stopped")
			return
		case <-ticker.C:
			s.pruneOnce(ctx, retention)
		}
	}
}

func (s *Store) pruneOnce(ctx context.Context, retention time.Duration) {
	start := time.Now()
	deleted, err := s.PruneRuns(ctx, retention)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("history pruned", "runs_deleted", deleted, "duration_ms", time.Since(start).Milliseconds())
}
