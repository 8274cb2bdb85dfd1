// Package channels provides the transport-backed senders for each
// notification channel.
package channels

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/environment"
	"github.com/dmitrymomot/notifykit/pkg/push"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

// TransportConfig holds the credentials of every transport. Missing values
// are not a startup error: the affected channel reports a failed delivery.
type TransportConfig struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	Email email.Config
	Push  push.Config
	SMS   sms.Config

	WebhookSecret  string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`

	// Circuit breaker applied per webhook host.
	WebhookBreakerFailures int           `env:"WEBHOOK_BREAKER_FAILURES" envDefault:"5"`
	WebhookBreakerRecovery time.Duration `env:"WEBHOOK_BREAKER_RECOVERY" envDefault:"30s"`
}

// DevMode reports whether unconfigured push and webhook deliveries should
// be logged and treated as successful.
func (c TransportConfig) DevMode() bool {
	return environment.Parse(c.AppEnv).IsDevelopment()
}
