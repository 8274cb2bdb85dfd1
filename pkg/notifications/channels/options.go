package channels

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	now        func() time.Time
	mailer     email.EmailSender
	smsOpts    []sms.Option
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the channel senders.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient sets the client used by the push, SMS and webhook transports.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithClock sets the time source used for webhook timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMailer replaces the email transport chosen from the configuration.
func WithMailer(m email.EmailSender) Option {
	return func(o *options) {
		o.mailer = m
	}
}

// WithSMSOptions passes extra options to the Twilio client.
func WithSMSOptions(opts ...sms.Option) Option {
	return func(o *options) {
		o.smsOpts = append(o.smsOpts, opts...)
	}
}
