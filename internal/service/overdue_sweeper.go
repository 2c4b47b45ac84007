package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OverdueRefresher brings stored invoice statuses up to date with the clock.
type OverdueRefresher interface {
	RefreshOverdue(ctx context.Context) (int64, error)
}

// RunOverdueSweep calls RefreshOverdue every interval until ctx is done.
// A non-positive interval returns immediately.
func RunOverdueSweep(ctx context.Context, refresher OverdueRefresher, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refresher.RefreshOverdue(ctx)
			if err != nil {
				logger.Error("overdue sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("overdue sweep", zap.Int64("marked", n))
			}
		}
	}
}
