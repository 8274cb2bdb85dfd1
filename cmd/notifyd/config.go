package main

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/notifications/channels"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
)

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

type appConfig struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"notifyd"`
	LogLevel    string `env:"LOG_LEVEL"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"`
	TemplatesFile string `env:"TEMPLATES_FILE"`

	PreferenceCacheTTL time.Duration `env:"PREFERENCE_CACHE_TTL" envDefault:"5m"`

	// In-process cache size used when REDIS_URL is empty; zero disables it.
	PreferenceCacheSize int `env:"PREFERENCE_CACHE_SIZE" envDefault:"0"`

	MaxAttempts     int           `env:"DEFAULT_MAX_ATTEMPTS" envDefault:"3"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
	ProcessingLease time.Duration `env:"PROCESSING_LEASE" envDefault:"5m"`
	BulkConcurrency int           `env:"BULK_CONCURRENCY" envDefault:"8"`

	// Zero disables the background sweep; POST /queue/sweep still works.
	SweepInterval time.Duration `env:"RETRY_SWEEP_INTERVAL" envDefault:"0s"`
	SweepBatch    int           `env:"RETRY_SWEEP_BATCH" envDefault:"100"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	Transport channels.TransportConfig
}
