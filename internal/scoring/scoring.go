// Package scoring turns a lead's status and activity history into a
// recommended next action. Rules are threshold-based: each one fires when
// too much time has passed since the activity that would have satisfied
// it, and the most overdue rule wins.
package scoring

import (
	"fmt"
	"time"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/remark"
)

// ActionKind identifies a recommended next step.
type ActionKind string

const (
	ActionCallNow         ActionKind = "call_now"
	ActionPushNegotiation ActionKind = "push_negotiation"
	ActionSendFollowUp    ActionKind = "send_follow_up"
	ActionPickUpLead      ActionKind = "pick_up_lead"
)

// Rule thresholds.
const (
	// hotCallAfter is how long a hot lead may go without a logged call.
	hotCallAfter = 6 * time.Hour

	// negotiationIdleAfter is how long a negotiation may sit without a
	// recorded status update.
	negotiationIdleAfter = 8 * time.Hour

	// proposalFollowUpAfter and proposalCallAfter bound the follow-up
	// window after a proposal goes out with no client reply: a message
	// nudge first, then a call once the wait gets long.
	proposalFollowUpAfter = 12 * time.Hour
	proposalCallAfter     = 48 * time.Hour

	// unassignedAfter is how long a lead may sit unowned and untouched.
	unassignedAfter = 2 * time.Hour
)

// Rule weights. Overdue time adds one point per full hour on top,
// capped at maxOverdueBonus.
const (
	weightHotCall      = 40
	weightProposalCall = 35
	weightNegotiation  = 30
	weightPickUp       = 25
	weightFollowUp     = 20

	maxOverdueBonus = 24
)

// Action is a recommended next step for a lead, with the urgency score
// that ranked it.
type Action struct {
	Kind     ActionKind
	Reason   string
	Priority model.Priority
	Score    int
}

// Evaluate returns the highest-scoring recommended action for the lead.
// The second return is false when the lead needs nothing right now:
// booked or lost leads, leads inside every threshold, and leads whose
// timestamps cannot be recovered all score nothing.
func Evaluate(lead model.Lead, now time.Time) (Action, bool) {
	class := model.NormalizeStatus(lead.Status)
	if class == model.StatusBooked || class == model.StatusLost {
		return Action{}, false
	}

	activities := remark.Parse(lead.Remarks)

	var best Action
	found := false
	consider := func(a Action, ok bool) {
		if ok && (!found || a.Score > best.Score) {
			best = a
			found = true
		}
	}

	switch class {
	case model.StatusHot:
		consider(hotRule(lead, activities, now))
	case model.StatusNegotiation:
		consider(negotiationRule(lead, activities, now))
	case model.StatusProposal:
		consider(proposalRule(lead, activities, now))
	}
	consider(unassignedRule(lead, activities, now))

	return best, found
}

// Score returns the lead's urgency score, zero when nothing is due.
func Score(lead model.Lead, now time.Time) int {
	act, ok := Evaluate(lead, now)
	if !ok {
		return 0
	}
	return act.Score
}

// NextAction returns the recommended next step for a lead with the given
// score. Leads that scored zero need nothing.
func NextAction(lead model.Lead, score int, now time.Time) (Action, bool) {
	if score <= 0 {
		return Action{}, false
	}
	return Evaluate(lead, now)
}

// hotRule fires when a hot lead has gone too long without a logged call.
func hotRule(lead model.Lead, activities []remark.Activity, now time.Time) (Action, bool) {
	anchor, ok := anchorTime(lead, activities, remark.KindCall)
	if !ok {
		return Action{}, false
	}
	since := now.Sub(anchor)
	if since < hotCallAfter {
		return Action{}, false
	}
	return Action{
		Kind:     ActionCallNow,
		Reason:   fmt.Sprintf("hot lead with no call for %s", roundHours(since)),
		Priority: model.PriorityHigh,
		Score:    weightHotCall + overdueBonus(since-hotCallAfter),
	}, true
}

// negotiationRule fires when a negotiation has no recent status update.
func negotiationRule(lead model.Lead, activities []remark.Activity, now time.Time) (Action, bool) {
	anchor, ok := anchorTime(lead, activities, remark.KindStatus)
	if !ok {
		return Action{}, false
	}
	since := now.Sub(anchor)
	if since < negotiationIdleAfter {
		return Action{}, false
	}
	return Action{
		Kind:     ActionPushNegotiation,
		Reason:   fmt.Sprintf("negotiation idle for %s", roundHours(since)),
		Priority: model.PriorityHigh,
		Score:    weightNegotiation + overdueBonus(since-negotiationIdleAfter),
	}, true
}

// proposalRule covers the window after a proposal goes out: a follow-up
// nudge from 12h of client silence, escalating to a call at 48h.
func proposalRule(lead model.Lead, activities []remark.Activity, now time.Time) (Action, bool) {
	// A client reply resets the silence window, as does re-sending the
	// proposal or a status change; the latest of those anchors it.
	anchor, ok := anchorTime(lead, activities, remark.KindReply, remark.KindStatus, remark.KindMessage)
	if !ok {
		return Action{}, false
	}
	since := now.Sub(anchor)

	switch {
	case since >= proposalCallAfter:
		return Action{
			Kind:     ActionCallNow,
			Reason:   fmt.Sprintf("no reply %s after proposal", roundHours(since)),
			Priority: model.PriorityHigh,
			Score:    weightProposalCall + overdueBonus(since-proposalCallAfter),
		}, true
	case since >= proposalFollowUpAfter:
		return Action{
			Kind:     ActionSendFollowUp,
			Reason:   fmt.Sprintf("no reply %s after proposal", roundHours(since)),
			Priority: model.PriorityNormal,
			Score:    weightFollowUp + overdueBonus(since-proposalFollowUpAfter),
		}, true
	}
	return Action{}, false
}

// unassignedRule fires when a lead sits unowned with no recorded activity.
func unassignedRule(lead model.Lead, activities []remark.Activity, now time.Time) (Action, bool) {
	if model.NormalizeOwner(lead.Owner) != "" {
		return Action{}, false
	}

	anchor, ok := anchorTime(lead, activities)
	if !ok {
		return Action{}, false
	}
	since := now.Sub(anchor)
	if since < unassignedAfter {
		return Action{}, false
	}
	return Action{
		Kind:     ActionPickUpLead,
		Reason:   fmt.Sprintf("unassigned for %s", roundHours(since)),
		Priority: model.PriorityHigh,
		Score:    weightPickUp + overdueBonus(since-unassignedAfter),
	}, true
}

// anchorTime returns the most recent activity instant among the given
// kinds, falling back to the lead's creation time when the log has none.
// No kinds means any activity counts. The second return is false when
// neither an activity nor a parseable creation time exists.
func anchorTime(lead model.Lead, activities []remark.Activity, kinds ...remark.Kind) (time.Time, bool) {
	var anchor time.Time
	found := false

	if len(kinds) == 0 {
		anchor, found = remark.LastAny(activities)
	} else {
		for _, kind := range kinds {
			if t, ok := remark.LastByKind(activities, kind); ok && t.After(anchor) {
				anchor = t
				found = true
			}
		}
	}
	if found {
		return anchor, true
	}

	return lead.CreatedTime()
}

// overdueBonus converts time past the threshold into score points, one
// per full hour, capped so staleness never dwarfs the rule weights.
func overdueBonus(over time.Duration) int {
	if over <= 0 {
		return 0
	}
	hours := int(over.Hours())
	if hours > maxOverdueBonus {
		return maxOverdueBonus
	}
	return hours
}

// roundHours renders a duration as whole hours for reason strings.
func roundHours(d time.Duration) string {
	return fmt.Sprintf("%dh", int(d.Hours()))
}
