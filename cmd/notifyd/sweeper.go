package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// runSweeper retries due queue entries every interval until ctx is done.
func runSweeper(ctx context.Context, d *notifications.Dispatcher, interval time.Duration, batch int, log *slog.Logger) {
	// Dispatcher records logged during a sweep carry the component too.
	ctx = logger.ContextWithAttrs(ctx, logger.Component("retry_sweeper"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := d.RetryDue(ctx, batch)
			if err != nil {
				log.LogAttrs(ctx, slog.LevelError, "retry sweep failed", logger.Error(err))
				continue
			}
			if len(res.Errors) > 0 {
				log.LogAttrs(ctx, slog.LevelWarn, "retry sweep finished with errors",
					slog.Int("failed", res.Failed),
					slog.Any("errors", res.Errors),
				)
			}
		}
	}
}
