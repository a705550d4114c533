package model

import "time"

// Snapshot is a full point-in-time copy of the lead book, captured by one
// successful sync. Ordering follows the provider's row order. Exactly two
// snapshots exist at any time (current and previous); older history is
// discarded.
type Snapshot struct {
	// Leads is the ordered record set as fetched.
	Leads []Lead `json:"leads"`

	// CapturedAt is when the fetch that produced this snapshot completed.
	CapturedAt time.Time `json:"captured_at"`
}

// IsEmpty reports whether the snapshot has never been captured. A captured
// snapshot with zero leads is not empty: it means the book really is empty.
func (s Snapshot) IsEmpty() bool {
	return s.CapturedAt.IsZero()
}

// ByIdentity indexes the snapshot's leads by natural key. Leads with an
// empty identity are skipped (not diffable); on duplicate keys the first
// occurrence wins, matching the provider's top-down read order.
func (s Snapshot) ByIdentity() map[LeadKey]Lead {
	m := make(map[LeadKey]Lead, len(s.Leads))
	for _, l := range s.Leads {
		key := l.Identity()
		if key.IsZero() {
			continue
		}
		if _, ok := m[key]; ok {
			continue
		}
		m[key] = l
	}
	return m
}
