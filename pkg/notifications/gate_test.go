package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

type brokenPreferenceStore struct{}

func (brokenPreferenceStore) Get(context.Context, string) (*notifications.Preferences, error) {
	return nil, errors.New("connection refused")
}

func (brokenPreferenceStore) Upsert(context.Context, string, notifications.PreferencesPatch) (*notifications.Preferences, error) {
	return nil, errors.New("connection refused")
}

func TestGate_DefaultPolicy(t *testing.T) {
	t.Parallel()

	gate := notifications.NewGate(notifications.NewMemoryPreferenceStore())
	ctx := context.Background()

	for _, c := range []notifications.Channel{notifications.ChannelEmail, notifications.ChannelPush, notifications.ChannelInApp} {
		d, err := gate.Decide(ctx, "user-1", c)
		require.NoError(t, err)
		assert.Equal(t, notifications.ActionSendNow, d.Action, c)
	}

	for _, c := range []notifications.Channel{notifications.ChannelSMS, notifications.ChannelWebhook} {
		d, err := gate.Decide(ctx, "user-1", c)
		require.NoError(t, err)
		assert.Equal(t, notifications.ActionReject, d.Action, c)
		assert.Equal(t, notifications.ReasonChannelDisabled, d.Reason)
	}
}

func TestGate_GloballyDisabledRejectsEveryChannel(t *testing.T) {
	t.Parallel()

	prefs := notifications.NewMemoryPreferenceStore()
	ctx := context.Background()

	patch := notifications.PreferencesPatch{
		Enabled:  boolPtr(false),
		Channels: map[notifications.Channel]notifications.ChannelPreference{},
	}
	for _, c := range notifications.Channels {
		patch.Channels[c] = notifications.ChannelPreference{Enabled: true}
	}
	_, err := prefs.Upsert(ctx, "user-1", patch)
	require.NoError(t, err)

	gate := notifications.NewGate(prefs)
	for _, c := range notifications.Channels {
		d, err := gate.Decide(ctx, "user-1", c)
		require.NoError(t, err)
		assert.Equal(t, notifications.ActionReject, d.Action, c)
		assert.Equal(t, notifications.ReasonDisabled, d.Reason)
	}
}

func TestGate_Category(t *testing.T) {
	t.Parallel()

	prefs := notifications.NewMemoryPreferenceStore()
	ctx := context.Background()
	_, err := prefs.Upsert(ctx, "user-1", notifications.PreferencesPatch{
		Categories: map[string]bool{"marketing": false, "security": true},
	})
	require.NoError(t, err)

	gate := notifications.NewGate(prefs)

	d, err := gate.DecideFor(ctx, "user-1", notifications.ChannelEmail, "marketing")
	require.NoError(t, err)
	assert.Equal(t, notifications.ActionReject, d.Action)
	assert.Equal(t, notifications.ReasonCategoryDisabled, d.Reason)

	for _, cat := range []string{"security", "unknown", ""} {
		d, err := gate.DecideFor(ctx, "user-1", notifications.ChannelEmail, cat)
		require.NoError(t, err)
		assert.Equal(t, notifications.ActionSendNow, d.Action, cat)
	}
}

func TestGate_QuietHoursDefer(t *testing.T) {
	t.Parallel()

	prefs := notifications.NewMemoryPreferenceStore()
	ctx := context.Background()
	_, err := prefs.Upsert(ctx, "user-1", notifications.PreferencesPatch{
		QuietHours: &notifications.QuietHours{Enabled: true, Start: "22:00", End: "08:00"},
	})
	require.NoError(t, err)

	clock := newTestClock(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC))
	gate := notifications.NewGate(prefs, notifications.WithGateClock(clock.Now))

	d, err := gate.Decide(ctx, "user-1", notifications.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, notifications.ActionDefer, d.Action)
	assert.Equal(t, notifications.ReasonQuietHours, d.Reason)
	assert.Equal(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), d.Until)

	clock.Set(time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC))
	d, err = gate.Decide(ctx, "user-1", notifications.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, notifications.ActionSendNow, d.Action)
}

func TestGate_DisabledChannelWinsOverQuietHours(t *testing.T) {
	t.Parallel()

	prefs := notifications.NewMemoryPreferenceStore()
	ctx := context.Background()
	_, err := prefs.Upsert(ctx, "user-1", notifications.PreferencesPatch{
		Channels:   map[notifications.Channel]notifications.ChannelPreference{notifications.ChannelEmail: {Enabled: false}},
		QuietHours: &notifications.QuietHours{Enabled: true, Start: "00:00", End: "23:59"},
	})
	require.NoError(t, err)

	gate := notifications.NewGate(prefs, notifications.WithGateClock(newTestClock(at(12, 0)).Now))
	d, err := gate.Decide(ctx, "user-1", notifications.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, notifications.ActionReject, d.Action)
}

func TestGate_StoreError(t *testing.T) {
	t.Parallel()

	gate := notifications.NewGate(brokenPreferenceStore{})
	_, err := gate.Decide(context.Background(), "user-1", notifications.ChannelEmail)
	assert.Error(t, err)
}
