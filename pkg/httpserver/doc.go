// Package httpserver runs the notification API with graceful shutdown.
//
// Server binds the configured address, serves a handler and stops when its
// context is cancelled or the process receives SIGINT/SIGTERM. Shutdown
// drains in-flight requests within Config.ShutdownTimeout and then runs the
// cleanups registered with WithOnShutdown (pool and client closers), last
// registered first.
//
//	srv := httpserver.New(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithOnShutdown(func(context.Context) error { pool.Close(); return nil }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Liveness and Readiness provide probe handlers; Readiness takes named
// checks such as pg.Healthcheck and redis.Healthcheck.
//
// Run wraps listen errors with ErrStart and Shutdown wraps drain or
// cleanup errors with ErrShutdown.
package httpserver
