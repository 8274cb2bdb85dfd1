package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

const (
	DefaultMaxBodyBytes = 1 << 20
	DefaultSweepLimit   = 100
	DefaultMaxBulkItems = 1000
)

// Option configures the API handler.
type Option func(*API)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithReadinessChecks registers dependency checks served on /readyz.
func WithReadinessChecks(checks ...httpserver.Check) Option {
	return func(a *API) {
		a.checks = append(a.checks, checks...)
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(a *API) {
		a.origins = origins
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithMaxBulkItems caps the number of requests in one bulk call.
func WithMaxBulkItems(n int) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBulk = n
		}
	}
}

// WithSweepLimit sets the default batch size of POST /queue/sweep.
func WithSweepLimit(n int) Option {
	return func(a *API) {
		if n > 0 {
			a.sweepLimit = n
		}
	}
}

// API exposes the dispatcher and preference store over HTTP.
type API struct {
	dispatcher  *notifications.Dispatcher
	preferences notifications.PreferenceStore
	logger      *slog.Logger
	checks      []httpserver.Check
	origins     []string
	maxBody     int64
	maxBulk     int
	sweepLimit  int
}

// New builds the API. preferences should be the same store the
// dispatcher's gate reads, so updates take effect on the next dispatch.
func New(d *notifications.Dispatcher, preferences notifications.PreferenceStore, opts ...Option) *API {
	a := &API{
		dispatcher:  d,
		preferences: preferences,
		logger:      slog.Default(),
		maxBody:     DefaultMaxBodyBytes,
		maxBulk:     DefaultMaxBulkItems,
		sweepLimit:  DefaultSweepLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns the chi router serving every endpoint.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(a.accessLog)
	if len(a.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestid.Header},
			ExposedHeaders: []string{requestid.Header},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(a.logger, 5*time.Second, a.checks...))

	r.Route("/notifications", func(r chi.Router) {
		r.Post("/", a.dispatch)
		r.Post("/bulk", a.dispatchBulk)
		r.Post("/template", a.dispatchTemplate)
		r.Post("/{id}/read", a.markRead)
		r.Post("/{id}/requeue", a.requeue)
	})

	r.Route("/queue", func(r chi.Router) {
		r.Post("/sweep", a.sweep)
		r.Post("/{id}/retry", a.retry)
	})

	r.Route("/preferences/{userID}", func(r chi.Router) {
		r.Get("/", a.getPreferences)
		r.Put("/", a.putPreferences)
	})

	return r
}
