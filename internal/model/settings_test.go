package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryEnabled_DefaultsToEnabled(t *testing.T) {
	t.Parallel()

	var s NotificationSettings
	assert.True(t, s.CategoryEnabled(CategoryNewLead))

	s = DefaultNotificationSettings()
	assert.True(t, s.CategoryEnabled(CategoryBooked))
	assert.True(t, s.CategoryEnabled(Category("unknown_future_category")))

	s.PerCategory[CategoryFollowUp] = false
	assert.False(t, s.CategoryEnabled(CategoryFollowUp))
	assert.True(t, s.CategoryEnabled(CategoryNewLead))
}

func TestDNDActive_MidnightCrossingWindow(t *testing.T) {
	t.Parallel()

	s := DefaultNotificationSettings()
	s.DNDEnabled = true

	day := func(hour, min int) time.Time {
		return time.Date(2024, 5, 1, hour, min, 0, 0, time.Local)
	}

	assert.True(t, s.DNDActive(day(23, 30)))
	assert.True(t, s.DNDActive(day(22, 0)))
	assert.True(t, s.DNDActive(day(3, 0)))
	assert.True(t, s.DNDActive(day(6, 59)))
	assert.False(t, s.DNDActive(day(7, 0)))
	assert.False(t, s.DNDActive(day(12, 0)))
	assert.False(t, s.DNDActive(day(21, 59)))

	s.DNDEnabled = false
	assert.False(t, s.DNDActive(day(23, 30)))
}

func TestDNDActive_SameDayWindow(t *testing.T) {
	t.Parallel()

	s := NotificationSettings{
		DNDEnabled:      true,
		DNDStartMinutes: 13 * 60,
		DNDEndMinutes:   15 * 60,
	}

	at := func(hour int) time.Time {
		return time.Date(2024, 5, 1, hour, 0, 0, 0, time.Local)
	}
	assert.True(t, s.DNDActive(at(13)))
	assert.True(t, s.DNDActive(at(14)))
	assert.False(t, s.DNDActive(at(15)))
	assert.False(t, s.DNDActive(at(9)))
}

func TestNextDNDEnd(t *testing.T) {
	t.Parallel()

	s := DefaultNotificationSettings()
	s.DNDEnabled = true

	// Before midnight the window ends tomorrow morning.
	evening := time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 5, 2, 7, 0, 0, 0, time.Local), s.NextDNDEnd(evening))

	// After midnight it ends the same morning.
	night := time.Date(2024, 5, 2, 3, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 5, 2, 7, 0, 0, 0, time.Local), s.NextDNDEnd(night))

	// Outside the window the instant passes through unchanged.
	noon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	assert.Equal(t, noon, s.NextDNDEnd(noon))
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	got, err := ParseClock("22:00")
	require.NoError(t, err)
	assert.Equal(t, 22*60, got)

	got, err = ParseClock(" 07:30 ")
	require.NoError(t, err)
	assert.Equal(t, 7*60+30, got)

	for _, bad := range []string{"", "7", "25:00", "12:61", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
