// Package logger builds *slog.Logger instances from functional options and
// provides attribute helpers that keep key names consistent across the
// service.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, cfg.ServiceName),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.LogAttrs(ctx, slog.LevelWarn, "retry attempt failed",
//	    logger.QueueID(entry.ID),
//	    logger.Attempt(entry.Attempts, entry.MaxAttempts),
//	)
//
// Helpers such as Error and NotificationID return an empty attribute for
// empty input, so they can be passed unconditionally. ContextWithAttrs
// attaches attributes to a context for every record logged with it.
package logger
