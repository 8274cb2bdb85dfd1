package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/environment"
)

// Format selects the slog handler New builds.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type settings struct {
	level      slog.Level
	format     Format
	out        io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// Option configures New.
type Option func(*settings)

// New builds a logger. The defaults are JSON records at info level written
// to stdout.
func New(opts ...Option) *slog.Logger {
	s := settings{level: slog.LevelInfo, format: FormatJSON, out: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}

	var h slog.Handler
	ho := &slog.HandlerOptions{Level: s.level}
	switch s.format {
	case FormatText:
		h = slog.NewTextHandler(s.out, ho)
	default:
		h = slog.NewJSONHandler(s.out, ho)
	}
	if len(s.attrs) > 0 {
		h = h.WithAttrs(s.attrs)
	}
	return slog.New(contextHandler{Handler: h, extractors: s.extractors})
}

// SetAsDefault installs l as the slog default logger.
func SetAsDefault(l *slog.Logger) { slog.SetDefault(l) }

func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithLevelName is WithLevel for a textual level. Unrecognised names are
// ignored.
func WithLevelName(name string) Option {
	return func(s *settings) {
		if l, ok := ParseLevel(name); ok {
			s.level = l
		}
	}
}

// WithFormat panics on a format other than FormatJSON or FormatText.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Sprintf("logger: unsupported format %q", f))
	}
	return func(s *settings) { s.format = f }
}

func WithTextFormatter() Option { return WithFormat(FormatText) }
func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput redirects records to w. A nil writer is ignored.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.out = w
		}
	}
}

// WithAttr attaches attrs to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// WithContextExtractors adds the attributes produced by extractors to each
// record logged with a context.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(s *settings) {
		for _, ex := range extractors {
			if ex != nil {
				s.extractors = append(s.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) as name when it is set.
func WithContextValue(name string, key any) Option {
	if name == "" || key == nil {
		return func(*settings) {}
	}
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		v := ctx.Value(key)
		return slog.Any(name, v), v != nil
	})
}

// WithEnvironment picks text output at debug level for development and
// JSON at info level elsewhere. Every record carries service and env.
func WithEnvironment(env, service string) Option {
	return func(s *settings) {
		e := environment.Parse(env)
		s.level, s.format = slog.LevelInfo, FormatJSON
		if e.IsDevelopment() {
			s.level, s.format = slog.LevelDebug, FormatText
		}
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
		s.attrs = append(s.attrs, slog.String("env", string(e)))
	}
}

// ParseLevel maps debug, info, warn (or warning) and error to slog levels,
// ignoring case.
func ParseLevel(name string) (slog.Level, bool) {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return slog.LevelInfo, false
	}
	return l, true
}
