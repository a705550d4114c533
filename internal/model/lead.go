package model

import (
	"strconv"
	"strings"
	"time"
)

// StatusClass is the normalized lifecycle class of a lead. The remote store
// keeps status as free text entered by agents; NormalizeStatus maps that text
// into this controlled vocabulary so diffing and scoring never compare raw
// strings.
type StatusClass string

const (
	StatusNew         StatusClass = "new"
	StatusHot         StatusClass = "hot"
	StatusNegotiation StatusClass = "negotiation"
	StatusProposal    StatusClass = "proposal_shared"
	StatusFollowUp    StatusClass = "follow_up"
	StatusBooked      StatusClass = "booked"
	StatusLost        StatusClass = "lost"
	StatusUnknown     StatusClass = "unknown"
)

// Lead is the unified representation of a single travel enquiry row from the
// remote spreadsheet-backed store.
type Lead struct {
	// CreatedAt is the provider's creation timestamp text, kept verbatim
	// because it is half of the lead's natural identity.
	CreatedAt string `json:"created_at"`

	// Name is the traveller's name as entered by the agent.
	Name string `json:"name"`

	// Phone is the traveller's contact number.
	Phone string `json:"phone"`

	// Destination is the enquired trip destination.
	Destination string `json:"destination"`

	// TravelDate is the intended date of travel, provider text.
	TravelDate string `json:"travel_date"`

	// Pax is the number of travellers on the enquiry.
	Pax int `json:"pax"`

	// Budget is the stated budget, free text (currency and ranges vary).
	Budget string `json:"budget"`

	// Status is the raw lifecycle status text (use StatusClass via
	// NormalizeStatus for comparisons).
	Status string `json:"status"`

	// Owner is the identifier of the agent the lead is assigned to,
	// empty when unassigned.
	Owner string `json:"owner"`

	// Remarks is the append-only activity log for the lead.
	Remarks string `json:"remarks"`

	// RowIndex is the provider row address at the time of the fetch. It is
	// a cache hint only: row positions shift when other actors insert or
	// delete rows, so every write re-resolves the address from identity.
	RowIndex int `json:"row_index"`
}

// LeadKey is the natural identity of a lead across snapshots: the creation
// timestamp text plus the case-folded traveller name. Row position is
// deliberately excluded.
type LeadKey struct {
	CreatedAt string
	NameFold  string
}

// Identity returns the lead's natural key. The zero key means the lead is
// not diffable and must be skipped by snapshot comparison.
func (l Lead) Identity() LeadKey {
	created := strings.TrimSpace(l.CreatedAt)
	name := FoldName(l.Name)
	if created == "" || name == "" {
		return LeadKey{}
	}
	return LeadKey{CreatedAt: created, NameFold: name}
}

// IsZero reports whether the key is empty (lead not identifiable).
func (k LeadKey) IsZero() bool {
	return k.CreatedAt == "" && k.NameFold == ""
}

// String renders the key in a stable "createdAt|name" form used for dedup
// keys and storage.
func (k LeadKey) String() string {
	return k.CreatedAt + "|" + k.NameFold
}

// FoldName normalizes a traveller or owner name for identity comparison:
// lower-cased, outer whitespace trimmed, inner runs collapsed to one space.
func FoldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeOwner canonicalizes an assigned-owner identifier. Placeholder
// values agents type for "nobody" normalize to the empty string.
func NormalizeOwner(s string) string {
	owner := FoldName(s)
	switch owner {
	case "", "-", "--", "na", "n/a", "none", "unassigned", "tbd":
		return ""
	}
	return owner
}

// statusMarkers maps substring markers to status classes, checked in order.
// Earlier entries win so that "booked elsewhere" resolves before "booked".
var statusMarkers = []struct {
	marker string
	class  StatusClass
}{
	{"booked elsewhere", StatusLost},
	{"booked with other", StatusLost},
	{"booked outside", StatusLost},
	{"booked", StatusBooked},
	{"confirmed", StatusBooked},
	{"not interested", StatusLost},
	{"cancel", StatusLost},
	{"lost", StatusLost},
	{"dead", StatusLost},
	{"negoti", StatusNegotiation},
	{"proposal", StatusProposal},
	{"quote", StatusProposal},
	{"quotation", StatusProposal},
	{"follow", StatusFollowUp},
	{"hot", StatusHot},
	{"urgent", StatusHot},
	{"new", StatusNew},
	{"fresh", StatusNew},
}

// NormalizeStatus maps the free-text status field into the controlled
// vocabulary. Unrecognized text maps to StatusUnknown rather than guessing.
func NormalizeStatus(raw string) StatusClass {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusUnknown
	}
	for _, m := range statusMarkers {
		if strings.Contains(s, m.marker) {
			return m.class
		}
	}
	return StatusUnknown
}

// IsBooked reports whether the class counts as a booked outcome for
// transition detection.
func (c StatusClass) IsBooked() bool {
	return c == StatusBooked
}

// createdAtLayouts are the timestamp layouts agents and the provider have
// historically used in the creation column.
var createdAtLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseTimestamp parses provider timestamp text against the known layouts.
// The second return is false when the text matches none of them.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range createdAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreatedTime parses the lead's creation timestamp text.
func (l Lead) CreatedTime() (time.Time, bool) {
	return ParseTimestamp(l.CreatedAt)
}

// ParsePax converts the provider's pax cell into a count, tolerating
// decorations like "4 adults". Returns 0 when no leading number exists.
func ParsePax(cell string) int {
	s := strings.TrimSpace(cell)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}
