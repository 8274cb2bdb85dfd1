package notifications_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// rejectingNotificationStore fails every move into one status.
type rejectingNotificationStore struct {
	*notifications.MemoryNotificationStore
	reject notifications.Status
}

func (s *rejectingNotificationStore) UpdateStatus(ctx context.Context, id string, status notifications.Status, ts notifications.StatusTimestamps) error {
	if status == s.reject {
		return errors.New("connection reset")
	}
	return s.MemoryNotificationStore.UpdateStatus(ctx, id, status, ts)
}

func errorRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["level"] == "ERROR" {
			out = append(out, rec)
		}
	}
	return out
}

func TestDispatcher_SendNow_LogsUnrecordedDelivery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stores := notifications.NewMemoryStores()
	stores.Notifications = &rejectingNotificationStore{
		MemoryNotificationStore: notifications.NewMemoryNotificationStore(),
		reject:                  notifications.StatusDelivered,
	}
	d := notifications.NewDispatcher(stores, allChannels(ok()),
		notifications.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		notifications.WithIDGenerator(func() string { return "n-1" }),
	)

	_, err := d.Dispatch(context.Background(), emailRequest("user-1"))
	require.ErrorContains(t, err, "failed to mark notification delivered")

	recs := errorRecords(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "notification sent but not marked delivered", recs[0]["msg"])
	assert.Equal(t, "n-1", recs[0]["notification_id"])
	assert.Equal(t, "user-1", recs[0]["user_id"])
	assert.Equal(t, "connection reset", recs[0]["error"])
	assert.NotContains(t, recs[0], "queue_id")

	n, err := stores.Notifications.Get(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusPending, n.Status)
}

func TestDispatcher_Retry_LogsUnrecordedDelivery(t *testing.T) {
	t.Parallel()

	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(notifications.Failed("down")).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(notifications.Succeeded()).Once()

	var buf bytes.Buffer
	stores := notifications.NewMemoryStores()
	stores.Notifications = &rejectingNotificationStore{
		MemoryNotificationStore: notifications.NewMemoryNotificationStore(),
		reject:                  notifications.StatusDelivered,
	}
	f := &fixture{stores: stores, clock: newTestClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))}
	f.dispatcher = notifications.NewDispatcher(stores, allChannels(sender),
		notifications.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		notifications.WithClock(f.clock.Now),
	)
	ctx := context.Background()
	notif, entry := failedNotification(t, f)
	buf.Reset()

	_, err := f.dispatcher.Retry(ctx, entry.ID)
	require.ErrorContains(t, err, "failed to mark notification delivered")

	recs := errorRecords(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "notification sent but not marked delivered", recs[0]["msg"])
	assert.Equal(t, notif.ID, recs[0]["notification_id"])
	assert.Equal(t, entry.ID, recs[0]["queue_id"])
	assert.Equal(t, "email", recs[0]["channel"])

	stored, err := f.stores.Queue.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.QueueStatusCompleted, stored.Status)
	sender.AssertExpectations(t)
}
