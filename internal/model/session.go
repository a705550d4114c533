package model

import "time"

// Session holds the authenticated user's token pair and activity marker.
// The invariant AccessExpiry <= RefreshExpiry holds at all times; a session
// whose refresh token has expired is invalid and must be discarded.
type Session struct {
	// UserID is the authenticated agent's identifier.
	UserID string `json:"user_id"`

	// AccessToken authorizes remote store calls until AccessExpiry.
	AccessToken string `json:"access_token"`

	// AccessExpiry is when the access token stops being accepted.
	AccessExpiry time.Time `json:"access_expiry"`

	// RefreshToken obtains new access tokens until RefreshExpiry.
	RefreshToken string `json:"refresh_token"`

	// RefreshExpiry is when the refresh token itself dies; past this
	// instant only a full re-authentication helps.
	RefreshExpiry time.Time `json:"refresh_expiry"`

	// LastTouched is the most recent user-activity marker.
	LastTouched time.Time `json:"last_touched"`
}

// IsZero reports whether no session has been established.
func (s Session) IsZero() bool {
	return s.UserID == "" && s.RefreshToken == ""
}

// Valid reports whether the session can still be used or refreshed at the
// given instant. A zero RefreshExpiry means the endpoint reported none, so
// the refresh token is assumed alive until it is rejected.
func (s Session) Valid(now time.Time) bool {
	if s.IsZero() {
		return false
	}
	if s.RefreshExpiry.IsZero() {
		return true
	}
	return now.Before(s.RefreshExpiry)
}

// AccessValid reports whether the access token is usable as-is at the given
// instant.
func (s Session) AccessValid(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	return now.Before(s.AccessExpiry)
}

// ClampInvariant enforces AccessExpiry <= RefreshExpiry, returning the
// corrected session. Token endpoints occasionally hand back an access token
// outliving its refresh token; the session never stores that.
func (s Session) ClampInvariant() Session {
	if !s.RefreshExpiry.IsZero() && s.AccessExpiry.After(s.RefreshExpiry) {
		s.AccessExpiry = s.RefreshExpiry
	}
	return s
}
