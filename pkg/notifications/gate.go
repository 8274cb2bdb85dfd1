package notifications

import (
	"context"
	"errors"
	"time"
)

// Action is what the gate tells the dispatcher to do.
type Action string

const (
	ActionSendNow Action = "send_now"
	ActionDefer   Action = "defer"
	ActionReject  Action = "reject"
)

// Rejection reasons.
const (
	ReasonDisabled         = "notifications disabled"
	ReasonChannelDisabled  = "channel disabled"
	ReasonCategoryDisabled = "category disabled"
	ReasonQuietHours       = "quiet hours"
)

// Decision is the gate's verdict for a single send.
type Decision struct {
	Action Action    `json:"action"`
	Until  time.Time `json:"until,omitzero"`
	Reason string    `json:"reason,omitempty"`
}

// Gate decides whether and when a notification may be sent, based on the
// recipient's preferences. It has no side effects.
type Gate struct {
	prefs PreferenceStore
	now   func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateClock overrides the clock used to evaluate quiet hours.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a preference gate backed by prefs.
func NewGate(prefs PreferenceStore, opts ...GateOption) *Gate {
	g := &Gate{prefs: prefs, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide evaluates the user's policy for channel.
func (g *Gate) Decide(ctx context.Context, userID string, channel Channel) (Decision, error) {
	return g.DecideFor(ctx, userID, channel, "")
}

// DecideFor is Decide with the notification category taken into account.
func (g *Gate) DecideFor(ctx context.Context, userID string, channel Channel, category string) (Decision, error) {
	prefs, err := g.Preferences(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	switch {
	case !prefs.Enabled:
		return Decision{Action: ActionReject, Reason: ReasonDisabled}, nil
	case !prefs.ChannelEnabled(channel):
		return Decision{Action: ActionReject, Reason: ReasonChannelDisabled}, nil
	case !prefs.CategoryEnabled(category):
		return Decision{Action: ActionReject, Reason: ReasonCategoryDisabled}, nil
	}

	now := g.now()
	if IsQuietNow(prefs.QuietHours, now) {
		return Decision{
			Action: ActionDefer,
			Until:  QuietHoursEnd(prefs.QuietHours, now),
			Reason: ReasonQuietHours,
		}, nil
	}

	return Decision{Action: ActionSendNow}, nil
}

// Preferences returns the stored preferences, or the default policy when
// the user has none.
func (g *Gate) Preferences(ctx context.Context, userID string) (Preferences, error) {
	p, err := g.prefs.Get(ctx, userID)
	if errors.Is(err, ErrPreferencesNotFound) {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return Preferences{}, err
	}
	return *p, nil
}
