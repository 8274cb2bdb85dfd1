package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/dmitrymomot/notifykit/pkg/cache"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/channels"
	"github.com/dmitrymomot/notifykit/pkg/notifications/httpapi"
	"github.com/dmitrymomot/notifykit/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/notifications/rediscache"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "vapid-keys" {
		if err := writeVAPIDKeys(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var cfg appConfig
	config.MustLoad(&cfg)

	opts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stores notifications.Stores
	var checks []httpserver.Check
	srvOpts := []httpserver.Option{httpserver.WithLogger(log)}

	switch cfg.StoreDriver {
	case storeMemory, "":
		stores = notifications.NewMemoryStores()
	case storePostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		srvOpts = append(srvOpts, httpserver.WithOnShutdown(func(context.Context) error {
			pool.Close()
			return nil
		}))
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg.Postgres, log); err != nil {
			pool.Close()
			return err
		}
		stores = pgstore.NewStores(pool)
		checks = append(checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		srvOpts = append(srvOpts, httpserver.WithOnShutdown(func(context.Context) error {
			return client.Close()
		}))
		stores.Preferences = rediscache.New(stores.Preferences,
			redis.NewStorage(client, cfg.ServiceName+":"),
			rediscache.WithTTL(cfg.PreferenceCacheTTL),
			rediscache.WithLogger(log),
		)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	} else if cfg.PreferenceCacheSize > 0 {
		stores.Preferences = rediscache.New(stores.Preferences,
			cache.NewLRU(cfg.PreferenceCacheSize),
			rediscache.WithTTL(cfg.PreferenceCacheTTL),
			rediscache.WithLogger(log),
		)
	}

	if err := seedTemplates(ctx, stores.Templates, cfg.TemplatesFile, log); err != nil {
		return err
	}

	dispatcher := notifications.NewDispatcher(stores,
		channels.NewSenders(cfg.Transport, channels.WithLogger(log)),
		notifications.WithLogger(log),
		notifications.WithMaxAttempts(cfg.MaxAttempts),
		notifications.WithSendTimeout(cfg.SendTimeout),
		notifications.WithProcessingLease(cfg.ProcessingLease),
		notifications.WithBulkConcurrency(cfg.BulkConcurrency),
	)

	api := httpapi.New(dispatcher, stores.Preferences,
		httpapi.WithLogger(log),
		httpapi.WithReadinessChecks(checks...),
		httpapi.WithAllowedOrigins(cfg.CORSOrigins...),
		httpapi.WithSweepLimit(cfg.SweepBatch),
	)

	if cfg.SweepInterval > 0 {
		go runSweeper(ctx, dispatcher, cfg.SweepInterval, cfg.SweepBatch, log)
	}

	return httpserver.New(cfg.HTTP, srvOpts...).Run(ctx, api.Router())
}
