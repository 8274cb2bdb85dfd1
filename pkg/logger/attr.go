package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error logs err under "error". A nil error yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors logs the non-nil errors under "errors", keyed by their position
// in errs.
func Errors(errs ...error) slog.Attr {
	var attrs []slog.Attr
	for i, err := range errs {
		if err != nil {
			attrs = append(attrs, slog.Any(strconv.Itoa(i), err))
		}
	}
	if attrs == nil {
		return slog.Attr{}
	}
	return Group("errors", attrs...)
}

// Delivery attributes. Identifier helpers return an empty Attr for an
// empty id.

func UserID(id string) slog.Attr         { return optional("user_id", id) }
func NotificationID(id string) slog.Attr { return optional("notification_id", id) }
func QueueID(id string) slog.Attr        { return optional("queue_id", id) }
func RequestID(id string) slog.Attr      { return optional("request_id", id) }

func Channel(name string) slog.Attr   { return slog.String("channel", name) }
func Component(name string) slog.Attr { return slog.String("component", name) }
func Provider(name string) slog.Attr  { return slog.String("provider", name) }

func Duration(d time.Duration) slog.Attr { return slog.Duration("duration", d) }

// Attempt logs the attempt number and its ceiling as attempt.n and attempt.max.
func Attempt(n, limit int) slog.Attr {
	return Group("attempt", slog.Int("n", n), slog.Int("max", limit))
}

func optional(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}
