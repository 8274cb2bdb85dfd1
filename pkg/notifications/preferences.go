package notifications

import (
	"maps"
	"slices"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

// Frequency is how often a channel delivers.
// Only realtime delivery is implemented; the others are stored as preferences.
type Frequency string

const (
	FrequencyRealtime Frequency = "realtime"
	FrequencyHourly   Frequency = "hourly"
	FrequencyDaily    Frequency = "daily"
)

// Frequencies lists every accepted frequency.
var Frequencies = []Frequency{FrequencyRealtime, FrequencyHourly, FrequencyDaily}

// ChannelPreference is the user's policy for a single channel.
type ChannelPreference struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
}

// Digest settings are stored but not acted upon by the engine.
type Digest struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
	Time      string    `json:"time"`
}

// Preferences is the per-user delivery policy.
type Preferences struct {
	UserID     string                        `json:"user_id"`
	Enabled    bool                          `json:"enabled"`
	Channels   map[Channel]ChannelPreference `json:"channels"`
	Categories map[string]bool               `json:"categories,omitempty"`
	QuietHours *QuietHours                   `json:"quiet_hours,omitempty"`
	Digest     *Digest                       `json:"digest,omitempty"`
	UpdatedAt  time.Time                     `json:"updated_at"`
}

// DefaultPreferences is the policy applied to users without a stored record:
// every channel enabled except SMS and webhook, quiet hours disabled.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:  userID,
		Enabled: true,
		Channels: map[Channel]ChannelPreference{
			ChannelEmail:   {Enabled: true, Frequency: FrequencyRealtime},
			ChannelPush:    {Enabled: true, Frequency: FrequencyRealtime},
			ChannelSMS:     {Enabled: false, Frequency: FrequencyRealtime},
			ChannelInApp:   {Enabled: true, Frequency: FrequencyRealtime},
			ChannelWebhook: {Enabled: false, Frequency: FrequencyRealtime},
		},
		Categories: map[string]bool{},
		QuietHours: &QuietHours{Enabled: false, Start: "22:00", End: "08:00"},
		Digest:     &Digest{Enabled: false, Frequency: FrequencyDaily, Time: "09:00"},
	}
}

// ChannelEnabled reports whether delivery over c is allowed.
// Channels absent from the record fall back to the default policy.
func (p Preferences) ChannelEnabled(c Channel) bool {
	if cp, ok := p.Channels[c]; ok {
		return cp.Enabled
	}
	return DefaultPreferences(p.UserID).Channels[c].Enabled
}

// CategoryEnabled reports whether a category is allowed. Unknown categories are allowed.
func (p Preferences) CategoryEnabled(category string) bool {
	if category == "" {
		return true
	}
	enabled, ok := p.Categories[category]
	return !ok || enabled
}

// PreferencesPatch is a partial preferences update. Nil fields are left unchanged.
type PreferencesPatch struct {
	Enabled    *bool                         `json:"enabled,omitempty"`
	Channels   map[Channel]ChannelPreference `json:"channels,omitempty"`
	Categories map[string]bool               `json:"categories,omitempty"`
	QuietHours *QuietHours                   `json:"quiet_hours,omitempty"`
	Digest     *Digest                       `json:"digest,omitempty"`
}

// Validate checks the patch for unknown channels, frequencies and malformed
// times. Every failed field is reported; the error wraps ErrInvalidInput.
func (p PreferencesPatch) Validate() error {
	var rules []validator.Rule
	for _, c := range slices.Sorted(maps.Keys(p.Channels)) {
		field := "channels." + string(c)
		rules = append(rules,
			validator.InList(field, c, Channels),
			validator.When(p.Channels[c].Frequency != "",
				validator.InList(field+".frequency", p.Channels[c].Frequency, Frequencies)),
		)
	}
	if q := p.QuietHours; q != nil && q.Enabled {
		rules = append(rules,
			validator.Custom("quiet_hours.start", "must use HH:MM", func() bool { return ValidClock(q.Start) }),
			validator.Custom("quiet_hours.end", "must use HH:MM", func() bool { return ValidClock(q.End) }),
			validator.Custom("quiet_hours.timezone", "unknown timezone", func() bool {
				if q.Timezone == "" {
					return true
				}
				_, err := time.LoadLocation(q.Timezone)
				return err == nil
			}),
		)
	}
	if d := p.Digest; d != nil {
		rules = append(rules,
			validator.When(d.Frequency != "", validator.InList("digest.frequency", d.Frequency, Frequencies)),
			validator.When(d.Time != "",
				validator.Custom("digest.time", "must use HH:MM", func() bool { return ValidClock(d.Time) })),
		)
	}
	return validate(rules...)
}

// Apply merges the patch onto p and returns the result. p is not modified.
func (p Preferences) Apply(patch PreferencesPatch) Preferences {
	out := p.Clone()

	if patch.Enabled != nil {
		out.Enabled = *patch.Enabled
	}
	for c, cp := range patch.Channels {
		if cp.Frequency == "" {
			cp.Frequency = FrequencyRealtime
		}
		out.Channels[c] = cp
	}
	for k, v := range patch.Categories {
		out.Categories[k] = v
	}
	if patch.QuietHours != nil {
		q := *patch.QuietHours
		out.QuietHours = &q
	}
	if patch.Digest != nil {
		d := *patch.Digest
		out.Digest = &d
	}
	return out
}

// Clone returns a deep copy of p.
func (p Preferences) Clone() Preferences {
	out := p
	out.Channels = make(map[Channel]ChannelPreference, len(p.Channels))
	for c, cp := range p.Channels {
		out.Channels[c] = cp
	}
	out.Categories = make(map[string]bool, len(p.Categories))
	for k, v := range p.Categories {
		out.Categories[k] = v
	}
	if p.QuietHours != nil {
		q := *p.QuietHours
		out.QuietHours = &q
	}
	if p.Digest != nil {
		d := *p.Digest
		out.Digest = &d
	}
	return out
}
