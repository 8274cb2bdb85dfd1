package notifications

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of a single delivery attempt.
// Transport and configuration failures are reported here, never as errors.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Succeeded returns a successful result.
func Succeeded() Result {
	return Result{Success: true}
}

// Failed returns a failed result with a formatted reason.
func Failed(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// FailedErr returns a failed result carrying err's message.
func FailedErr(err error) Result {
	if err == nil {
		return Failed("unknown delivery error")
	}
	return Result{Success: false, Error: err.Error()}
}

// Sender delivers a notification over one channel.
type Sender interface {
	Send(ctx context.Context, notif Notification) Result
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, notif Notification) Result

func (f SenderFunc) Send(ctx context.Context, notif Notification) Result {
	return f(ctx, notif)
}

// Senders is the lookup table from channel to sender.
type Senders map[Channel]Sender

// Send delivers notif with the sender registered for its channel.
// The attempt is bounded by timeout; a sender still running at the deadline
// is abandoned and the attempt is reported as failed.
func (s Senders) Send(ctx context.Context, notif Notification, timeout time.Duration) Result {
	sender, ok := s[notif.Channel]
	if !ok || sender == nil {
		return Failed("no sender configured for channel %q", notif.Channel)
	}

	if timeout <= 0 {
		return safeSend(ctx, sender, notif)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- safeSend(ctx, sender, notif) }()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return Failed("%s delivery timed out after %s", notif.Channel, timeout)
	}
}

// safeSend converts a panicking sender into a failed result.
func safeSend(ctx context.Context, sender Sender, notif Notification) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed("%s sender panicked: %v", notif.Channel, r)
		}
	}()
	return sender.Send(ctx, notif)
}
