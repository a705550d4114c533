package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Category classifies a notification for per-category enablement and
// routing in the inbox.
type Category string

const (
	CategoryNewLead    Category = "new_lead"
	CategoryReassigned Category = "reassigned"
	CategoryBooked     Category = "booked"
	CategoryFollowUp   Category = "follow_up"
	CategoryHeadsUp    Category = "heads_up"
	CategoryBroadcast  Category = "admin_broadcast"
)

// Categories lists every known category, in display order.
var Categories = []Category{
	CategoryNewLead,
	CategoryReassigned,
	CategoryBooked,
	CategoryFollowUp,
	CategoryHeadsUp,
	CategoryBroadcast,
}

// Priority is a notification's delivery priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// NotificationKey is the composite dedup identity of a notification:
// who it is for, which entity it is about, and what action it proposes.
// It is a comparable struct used directly as a map key, never an ad hoc
// string template.
type NotificationKey struct {
	// Recipient is the identifier of the user the notification targets.
	Recipient string

	// Source identifies the entity the notification is about: a lead's
	// LeadKey.String(), or "broadcast:<id>" for admin broadcasts.
	Source string

	// Action is the proposed action or transition name.
	Action string
}

// Hash derives the notification's stable identity from the key. The same
// (recipient, source, action) always yields the same ID, which is what makes
// rate-limited dedup possible across repeated score runs.
func (k NotificationKey) Hash() string {
	h := sha256.New()
	h.Write([]byte(k.Recipient))
	h.Write([]byte{0})
	h.Write([]byte(k.Source))
	h.Write([]byte{0})
	h.Write([]byte(k.Action))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// DeepLink is an optional in-app navigation target attached to a
// notification.
type DeepLink struct {
	// Route is the app route to open, e.g. "/lead".
	Route string `json:"route"`

	// Lead references the entity the route should display.
	Lead LeadKey `json:"lead"`
}

// Notification is a delivery-ready alert produced by the differ, the scorer,
// or an admin broadcast. Once created it is immutable except for the read
// flag and the snooze/schedule timestamp.
type Notification struct {
	// ID is the stable identity, always NotificationKey.Hash() and never
	// random, so replays and re-scores dedup instead of duplicating.
	ID string `json:"id"`

	// Key is the composite dedup identity.
	Key NotificationKey `json:"key"`

	// Title is the short alert headline.
	Title string `json:"title"`

	// Body is the longer alert text.
	Body string `json:"body"`

	// Category drives per-category enablement and inbox grouping.
	Category Category `json:"category"`

	// Priority drives DND handling.
	Priority Priority `json:"priority"`

	// Recipient duplicates Key.Recipient for storage and display.
	Recipient string `json:"recipient"`

	// DeepLink is the optional navigation target.
	DeepLink *DeepLink `json:"deep_link,omitempty"`

	// CreatedAt is when the candidate was produced.
	CreatedAt time.Time `json:"created_at"`

	// Read indicates the user has seen the delivered notification.
	Read bool `json:"read"`

	// ScheduledFor defers delivery to a later instant (digest flush,
	// DND deferral, or a snooze re-creation). Zero means immediate.
	ScheduledFor time.Time `json:"scheduled_for,omitempty"`
}

// NewNotification builds a notification with its deterministic ID filled in.
func NewNotification(key NotificationKey, category Category, priority Priority, title, body string, createdAt time.Time) Notification {
	return Notification{
		ID:        key.Hash(),
		Key:       key,
		Title:     title,
		Body:      body,
		Category:  category,
		Priority:  priority,
		Recipient: key.Recipient,
		CreatedAt: createdAt,
	}
}
