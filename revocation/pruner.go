package revocation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunPruner calls p.Prune every interval until ctx is cancelled. Failures are
// logged and retried on the next tick.
func RunPruner(ctx context.Context, p Pruner, interval time.Duration, logger *zap.Logger) {
	if p == nil || interval <= 0 {
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
		case now := <-ticker.C:
			removed, err := p.Prune(ctx, now)
			if err != nil {
				logger.Warn("revocation prune failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("revocation entries pruned", zap.Int("removed", removed))
			}
		}
	}
}
