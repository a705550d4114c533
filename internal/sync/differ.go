package sync

import (
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// DiffResult holds the lead transitions detected between two snapshots.
type DiffResult struct {
	// NewLeads are leads present now that were absent before.
	NewLeads []model.Lead

	// ReassignedToRecipient are existing leads whose owner changed to the
	// recipient since the previous snapshot.
	ReassignedToRecipient []model.Lead

	// NewlyBooked are existing leads that crossed into a booked status.
	NewlyBooked []model.Lead
}

// Empty reports whether the diff found no transitions.
func (r DiffResult) Empty() bool {
	return len(r.NewLeads) == 0 &&
		len(r.ReassignedToRecipient) == 0 &&
		len(r.NewlyBooked) == 0
}

// Diff compares two snapshots by lead identity and returns the transitions
// that matter for notifications. It is a pure function of its inputs.
//
// Leads are matched by natural key, never by row position, so inserted or
// deleted rows elsewhere in the book shift nothing. Leads that disappear
// produce no transition, and a first-ever snapshot produces none either:
// with nothing to compare against, alerting on the whole book would be
// noise.
func Diff(previous, current model.Snapshot, recipient string) DiffResult {
	var result DiffResult
	if previous.IsEmpty() {
		return result
	}

	prevByKey := previous.ByIdentity()
	me := model.NormalizeOwner(recipient)

	seen := make(map[model.LeadKey]bool, len(current.Leads))
	for _, lead := range current.Leads {
		key := lead.Identity()
		if key.IsZero() || seen[key] {
			continue
		}
		seen[key] = true

		prev, existed := prevByKey[key]
		if !existed {
			result.NewLeads = append(result.NewLeads, lead)
			continue
		}

		prevOwner := model.NormalizeOwner(prev.Owner)
		curOwner := model.NormalizeOwner(lead.Owner)
		if me != "" && curOwner == me && prevOwner != curOwner {
			result.ReassignedToRecipient = append(result.ReassignedToRecipient, lead)
		}

		if !model.NormalizeStatus(prev.Status).IsBooked() &&
			model.NormalizeStatus(lead.Status).IsBooked() {
			result.NewlyBooked = append(result.NewlyBooked, lead)
		}
	}

	return result
}
