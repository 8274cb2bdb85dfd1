package notifications

import (
	"strconv"
	"strings"
	"time"
)

// QuietHours is a daily window during which immediate delivery is deferred.
// Start and End use the "HH:MM" format. Timezone is an optional IANA name;
// when empty the zone of the evaluated time is used.
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone,omitempty"`
}

// IsQuietNow reports whether now falls inside the window.
// The interval is half-open: now == start is quiet, now == end is not.
// A window with start > end spans midnight.
func IsQuietNow(q *QuietHours, now time.Time) bool {
	if q == nil || !q.Enabled {
		return false
	}
	start, ok := parseClock(q.Start)
	if !ok {
		return false
	}
	end, ok := parseClock(q.End)
	if !ok {
		return false
	}

	now = q.in(now)
	cur := now.Hour()*60 + now.Minute()

	if start <= end {
		return start <= cur && cur < end
	}
	return cur >= start || cur < end
}

// QuietHoursEnd returns the next instant, strictly after now, at which the
// window's end time occurs. It returns now unchanged when the window is
// unusable.
func QuietHoursEnd(q *QuietHours, now time.Time) time.Time {
	if q == nil {
		return now
	}
	end, ok := parseClock(q.End)
	if !ok {
		return now
	}

	local := q.in(now)
	y, m, d := local.Date()
	at := time.Date(y, m, d, end/60, end%60, 0, 0, local.Location())
	if !at.After(local) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func (q *QuietHours) in(t time.Time) time.Time {
	if q.Timezone == "" {
		return t
	}
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// ValidClock reports whether s is a valid "HH:MM" time of day.
func ValidClock(s string) bool {
	_, ok := parseClock(s)
	return ok
}
