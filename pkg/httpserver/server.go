package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		s.log = l
	}
}

// WithOnShutdown registers a cleanup function that runs after the HTTP
// server stops accepting requests. Cleanups run in reverse registration
// order, so resources opened first are released last.
func WithOnShutdown(fn func(context.Context) error) Option {
	return func(s *Server) {
		if fn != nil {
			s.cleanups = append(s.cleanups, fn)
		}
	}
}

// WithOnStart registers a callback invoked with the bound address once
// the listener is open.
func WithOnStart(fn func(addr string)) Option {
	return func(s *Server) {
		if fn != nil {
			s.onStart = append(s.onStart, fn)
		}
	}
}

// Server runs an http.Server until its context is cancelled or the
// process receives SIGINT/SIGTERM, then drains it.
type Server struct {
	cfg      Config
	log      *slog.Logger
	cleanups []func(context.Context) error
	onStart  []func(string)

	mu   sync.Mutex
	srv  *http.Server
	addr string
	once sync.Once
	err  error
}

// New returns a Server for cfg.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg: cfg.withDefaults(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr reports the bound listener address, or "" before Run has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves handler and blocks until shutdown completes.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, err)
	}
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	s.srv = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.log.LogAttrs(ctx, slog.LevelInfo, "http server started",
		logger.Component("httpserver"),
		slog.String("addr", s.addr),
	)
	for _, fn := range s.onStart {
		fn(s.addr)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var serveErr error
	select {
	case <-sigCtx.Done():
		shutdownErr := s.Shutdown(context.WithoutCancel(ctx))
		serveErr = <-errCh
		if shutdownErr != nil {
			return shutdownErr
		}
	case serveErr = <-errCh:
	}

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, serveErr)
	}
	return nil
}

// Shutdown drains the server and then runs the registered cleanups.
// Repeated calls return the result of the first one.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
		}
		for i := len(s.cleanups) - 1; i >= 0; i-- {
			if err := s.cleanups[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}

		if len(errs) > 0 {
			s.err = errors.Join(ErrShutdown, errors.Join(errs...))
			s.log.LogAttrs(ctx, slog.LevelError, "http server shutdown failed",
				logger.Component("httpserver"),
				logger.Errors(errs...),
			)
			return
		}
		s.log.LogAttrs(ctx, slog.LevelInfo, "http server stopped", logger.Component("httpserver"))
	})
	return s.err
}
