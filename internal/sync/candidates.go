package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/scoring"
)

// diffCandidates converts detected transitions into notification
// candidates for the signed-in user. Agents hear about their own and
// unassigned leads; admins hear about all of them.
func diffCandidates(diff DiffResult, recipient string, role model.Role, now time.Time) []model.Notification {
	var out []model.Notification

	for _, lead := range diff.NewLeads {
		if !concernsUser(lead, recipient, role) {
			continue
		}
		out = append(out, leadNotification(lead, recipient,
			"new_lead", model.CategoryNewLead, model.PriorityNormal,
			"New lead: "+lead.Name, summaryLine(lead), now))
	}

	for _, lead := range diff.ReassignedToRecipient {
		out = append(out, leadNotification(lead, recipient,
			"reassigned", model.CategoryReassigned, model.PriorityHigh,
			"Lead assigned to you: "+lead.Name, summaryLine(lead), now))
	}

	for _, lead := range diff.NewlyBooked {
		if !concernsUser(lead, recipient, role) {
			continue
		}
		out = append(out, leadNotification(lead, recipient,
			"booked", model.CategoryBooked, model.PriorityNormal,
			"Booked: "+lead.Name, summaryLine(lead), now))
	}

	return out
}

// actionCandidate turns a scored action into a notification when the
// action concerns the recipient: owned-lead actions go to the owner,
// pick-up calls go to everyone.
func actionCandidate(lead model.Lead, act scoring.Action, recipient string, now time.Time) (model.Notification, bool) {
	owner := model.NormalizeOwner(lead.Owner)
	me := model.NormalizeOwner(recipient)

	var category model.Category
	switch act.Kind {
	case scoring.ActionPickUpLead:
		if owner != "" {
			return model.Notification{}, false
		}
		category = model.CategoryHeadsUp
	default:
		if me == "" || owner != me {
			return model.Notification{}, false
		}
		category = model.CategoryFollowUp
	}

	n := leadNotification(lead, recipient,
		string(act.Kind), category, act.Priority,
		actionTitle(act.Kind, lead), act.Reason, now)
	return n, true
}

// broadcastCandidates converts admin broadcasts into notifications for
// the recipient, honoring each broadcast's audience selector.
func broadcastCandidates(broadcasts []model.Broadcast, recipient string, role model.Role, now time.Time) []model.Notification {
	var out []model.Notification
	for _, b := range broadcasts {
		if b.ID == "" || !b.AppliesTo(recipient, role) {
			continue
		}
		out = append(out, model.NewNotification(
			model.NotificationKey{
				Recipient: recipient,
				Source:    "broadcast:" + b.ID,
				Action:    "announce",
			},
			model.CategoryBroadcast,
			model.PriorityNormal,
			"Team announcement",
			b.Message,
			now,
		))
	}
	return out
}

// concernsUser reports whether a lead's transition matters to the user:
// admins watch the whole book, agents their own and unassigned leads.
func concernsUser(lead model.Lead, recipient string, role model.Role) bool {
	if role == model.RoleAdmin {
		return true
	}
	owner := model.NormalizeOwner(lead.Owner)
	return owner == "" || owner == model.NormalizeOwner(recipient)
}

// leadNotification builds a lead-linked notification candidate.
func leadNotification(
	lead model.Lead,
	recipient, action string,
	category model.Category,
	priority model.Priority,
	title, body string,
	now time.Time,
) model.Notification {
	key := lead.Identity()
	n := model.NewNotification(
		model.NotificationKey{Recipient: recipient, Source: key.String(), Action: action},
		category, priority, title, body, now,
	)
	n.DeepLink = &model.DeepLink{Route: "/lead", Lead: key}
	return n
}

// actionTitle renders the headline for a recommended action.
func actionTitle(kind scoring.ActionKind, lead model.Lead) string {
	switch kind {
	case scoring.ActionCallNow:
		return "Call now: " + lead.Name
	case scoring.ActionPushNegotiation:
		return "Push the negotiation: " + lead.Name
	case scoring.ActionSendFollowUp:
		return "Send a follow-up: " + lead.Name
	case scoring.ActionPickUpLead:
		return "Unassigned lead waiting: " + lead.Name
	}
	return lead.Name
}

// summaryLine renders the lead's trip facts for notification bodies.
func summaryLine(lead model.Lead) string {
	var parts []string
	if lead.Destination != "" {
		parts = append(parts, lead.Destination)
	}
	if lead.TravelDate != "" {
		parts = append(parts, "travel "+lead.TravelDate)
	}
	if lead.Pax > 0 {
		parts = append(parts, fmt.Sprintf("%d pax", lead.Pax))
	}
	if lead.Budget != "" {
		parts = append(parts, "budget "+lead.Budget)
	}
	if len(parts) == 0 {
		return "Open the lead for details."
	}
	return strings.Join(parts, ", ")
}
