package idempotency

import (
	"context"
	"time"
)

// RunCleanup removes expired records every interval until ctx is cancelled.
func RunCleanup(ctx context.Context, store Store, interval time.Duration, batchSize int, logger Logger) {
	if store == nil || interval <= 0 {
		return
	}
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.CleanupExpired(ctx, now, batchSize)
			if err != nil {
				logger(ctx, "idempotency.cleanup_failed", map[string]any{"error": err.Error()})
				continue
			}
			if removed > 0 {
				logger(ctx, "idempotency.cleanup", map[string]any{"removed": removed})
			}
		}
	}
}
