package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionValid(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.False(t, Session{}.Valid(now))

	live := Session{UserID: "priya", RefreshToken: "r", RefreshExpiry: now.Add(time.Hour)}
	assert.True(t, live.Valid(now))

	dead := Session{UserID: "priya", RefreshToken: "r", RefreshExpiry: now.Add(-time.Minute)}
	assert.False(t, dead.Valid(now))

	// An endpoint that reports no refresh expiry leaves it zero; the token
	// is assumed alive until rejected.
	open := Session{UserID: "priya", RefreshToken: "r"}
	assert.True(t, open.Valid(now))
}

func TestSessionAccessValid(t *testing.T) {
	t.Parallel()

	now := time.Now()

	s := Session{AccessToken: "tok", AccessExpiry: now.Add(10 * time.Minute)}
	assert.True(t, s.AccessValid(now))

	s.AccessExpiry = now.Add(-time.Second)
	assert.False(t, s.AccessValid(now))

	assert.False(t, Session{AccessExpiry: now.Add(time.Hour)}.AccessValid(now))
}

func TestSessionClampInvariant(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := Session{
		AccessExpiry:  now.Add(2 * time.Hour),
		RefreshExpiry: now.Add(time.Hour),
	}
	clamped := s.ClampInvariant()
	assert.Equal(t, clamped.RefreshExpiry, clamped.AccessExpiry)

	// A zero refresh expiry clamps nothing.
	open := Session{AccessExpiry: now.Add(2 * time.Hour)}
	assert.Equal(t, open, open.ClampInvariant())
}
