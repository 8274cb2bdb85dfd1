package notifications_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// MockSender records deliveries for assertions.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, n notifications.Notification) notifications.Result {
	args := m.Called(ctx, n)
	return args.Get(0).(notifications.Result)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok() notifications.Sender {
	return notifications.SenderFunc(func(context.Context, notifications.Notification) notifications.Result {
		return notifications.Succeeded()
	})
}

func failing(reason string) notifications.Sender {
	return notifications.SenderFunc(func(context.Context, notifications.Notification) notifications.Result {
		return notifications.Failed("%s", reason)
	})
}

// allChannels registers s for every channel.
func allChannels(s notifications.Sender) notifications.Senders {
	out := notifications.Senders{}
	for _, c := range notifications.Channels {
		out[c] = s
	}
	return out
}

type fixture struct {
	stores     notifications.Stores
	clock      *testClock
	dispatcher *notifications.Dispatcher
}

func newFixture(senders notifications.Senders, opts ...notifications.Option) *fixture {
	f := &fixture{
		stores: notifications.NewMemoryStores(),
		clock:  newTestClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	opts = append([]notifications.Option{
		notifications.WithLogger(discardLogger()),
		notifications.WithClock(f.clock.Now),
	}, opts...)
	f.dispatcher = notifications.NewDispatcher(f.stores, senders, opts...)
	return f
}

func emailRequest(userID string) notifications.Request {
	return notifications.Request{
		UserID:  userID,
		Channel: notifications.ChannelEmail,
		Title:   "Hello",
		Body:    "World",
	}
}

func boolPtr(b bool) *bool { return &b }
