package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotificationSettings is the user's delivery preference set, persisted in
// the local store and applied by the dispatcher before anything reaches the
// presentation sink.
type NotificationSettings struct {
	// PerCategory enables or disables whole categories. Categories absent
	// from the map default to enabled.
	PerCategory map[Category]bool `json:"per_category"`

	// DNDEnabled turns the do-not-disturb window on.
	DNDEnabled bool `json:"dnd_enabled"`

	// DNDStartMinutes and DNDEndMinutes bound the window as local-time
	// minutes of day. A start after the end means the window crosses
	// midnight (22:00 to 07:00).
	DNDStartMinutes int `json:"dnd_start_minutes"`
	DNDEndMinutes   int `json:"dnd_end_minutes"`

	// DigestLowPriority queues sub-high candidates arriving during DND
	// into a digest delivered when the window ends, instead of dropping
	// or deferring them one by one.
	DigestLowPriority bool `json:"digest_low_priority"`
}

// DefaultNotificationSettings returns the preference set used until the user
// changes anything: everything enabled, DND 22:00-07:00 but switched off,
// digestion on.
func DefaultNotificationSettings() NotificationSettings {
	per := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		per[c] = true
	}
	return NotificationSettings{
		PerCategory:       per,
		DNDEnabled:        false,
		DNDStartMinutes:   22 * 60,
		DNDEndMinutes:     7 * 60,
		DigestLowPriority: true,
	}
}

// CategoryEnabled reports whether the category may be delivered at all.
func (s NotificationSettings) CategoryEnabled(c Category) bool {
	if s.PerCategory == nil {
		return true
	}
	enabled, ok := s.PerCategory[c]
	if !ok {
		return true
	}
	return enabled
}

// DNDActive reports whether the given local instant falls inside the
// configured do-not-disturb window.
func (s NotificationSettings) DNDActive(now time.Time) bool {
	if !s.DNDEnabled {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	start, end := s.DNDStartMinutes, s.DNDEndMinutes
	if start == end {
		return false
	}
	if start < end {
		return minute >= start && minute < end
	}
	// Window crosses midnight.
	return minute >= start || minute < end
}

// NextDNDEnd returns the next instant at which the window closes, for
// scheduling deferred and digested deliveries. Calling it outside the window
// returns now unchanged.
func (s NotificationSettings) NextDNDEnd(now time.Time) time.Time {
	if !s.DNDActive(now) {
		return now
	}
	end := time.Date(now.Year(), now.Month(), now.Day(),
		s.DNDEndMinutes/60, s.DNDEndMinutes%60, 0, 0, now.Location())
	if !end.After(now) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// ParseClock converts "HH:MM" into minutes of day, for reading DND bounds
// from configuration.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock value %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock value %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q: bad minute", s)
	}
	return h*60 + m, nil
}
