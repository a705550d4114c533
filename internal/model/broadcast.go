package model

import (
	"strings"
	"time"
)

// Broadcast is an announcement row from the provider's Broadcasts tab,
// surfaced to matching users through the admin-broadcast category.
type Broadcast struct {
	// ID is the broadcast's identifier cell; broadcasts without one are
	// ignored because they cannot be deduplicated.
	ID string `json:"id"`

	// PostedAt is when the broadcast was posted.
	PostedAt time.Time `json:"posted_at"`

	// Audience selects recipients: "all", "role:<role>" or "user:<id>".
	Audience string `json:"audience"`

	// Message is the announcement text.
	Message string `json:"message"`
}

// AppliesTo reports whether the broadcast targets the given user.
func (b Broadcast) AppliesTo(userID string, role Role) bool {
	audience := strings.TrimSpace(strings.ToLower(b.Audience))
	switch {
	case audience == "" || audience == "all":
		return true
	case strings.HasPrefix(audience, "role:"):
		return strings.TrimPrefix(audience, "role:") == string(role)
	case strings.HasPrefix(audience, "user:"):
		return strings.TrimPrefix(audience, "user:") == strings.ToLower(strings.TrimSpace(userID))
	}
	return false
}
