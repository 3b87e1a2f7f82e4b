package task

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper calls Sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, r Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.Sweep(ctx)
			if err != nil {
				slog.Warn("failed to sweep tasks", slog.Any("err", err))
				continue
			}
			if removed > 0 {
				slog.Info("Swept expired tasks", slog.Int("removed", removed))
			}
		}
	}
}
