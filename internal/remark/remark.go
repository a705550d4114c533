// Package remark parses the free-text activity log agents append to a
// lead's remarks column. The scorer keys its time-since-activity rules off
// the timestamps recovered here.
package remark

import (
	"regexp"
	"strings"
	"time"
)

// Kind classifies a single activity entry.
type Kind string

const (
	// KindCall is an outbound phone call to the traveller.
	KindCall Kind = "call"

	// KindMessage is an outbound message (SMS/WhatsApp/email).
	KindMessage Kind = "message"

	// KindReply is an inbound response from the traveller.
	KindReply Kind = "reply"

	// KindStatus is a recorded status change.
	KindStatus Kind = "status"

	// KindNote is any other dated entry.
	KindNote Kind = "note"
)

// Activity is one parsed entry from the remark log.
type Activity struct {
	Kind Kind
	At   time.Time
	Note string
}

// timestampPattern matches a leading timestamp, bare or bracketed:
// "2024-05-01 14:30 | called, no answer" or "[01/05/2024 14:30] called".
var timestampPattern = regexp.MustCompile(
	`^\[?(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}(?::\d{2})?|\d{2}/\d{2}/\d{4}(?: \d{2}:\d{2})?)\]?`)

// timestampLayouts are tried in order against the captured timestamp text.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"02/01/2006 15:04",
	"02/01/2006",
}

// kindMarkers maps lowercase substring markers to activity kinds, checked in
// order. Reply markers come first because "client replied to message" must
// classify as a reply, not a message.
var kindMarkers = []struct {
	marker string
	kind   Kind
}{
	{"replied", KindReply},
	{"reply", KindReply},
	{"responded", KindReply},
	{"client said", KindReply},
	{"heard back", KindReply},
	{"called", KindCall},
	{"call", KindCall},
	{"rang", KindCall},
	{"phoned", KindCall},
	{"no answer", KindCall},
	{"whatsapp", KindMessage},
	{"messaged", KindMessage},
	{"message", KindMessage},
	{"msg", KindMessage},
	{"sms", KindMessage},
	{"texted", KindMessage},
	{"mailed", KindMessage},
	{"emailed", KindMessage},
	{"sent proposal", KindMessage},
	{"sent quote", KindMessage},
	{"status", KindStatus},
	{"moved to", KindStatus},
	{"marked as", KindStatus},
	{"marked", KindStatus},
}

// Parse extracts dated activities from a remark log, one candidate per line.
// Lines without a recognizable leading timestamp are ignored; entries keep
// the log's order. Parse never fails: a malformed log just yields fewer
// activities.
func Parse(log string) []Activity {
	if strings.TrimSpace(log) == "" {
		return nil
	}

	var activities []Activity
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		loc := timestampPattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		stamp := line[loc[2]:loc[3]]
		at, ok := parseStamp(stamp)
		if !ok {
			continue
		}

		note := strings.TrimSpace(line[loc[1]:])
		note = strings.TrimLeft(note, "|-:–")
		note = strings.TrimSpace(note)

		activities = append(activities, Activity{
			Kind: classify(note),
			At:   at,
			Note: note,
		})
	}
	return activities
}

// parseStamp tries each known layout against the timestamp text.
func parseStamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// classify maps an entry's note text onto an activity kind.
func classify(note string) Kind {
	lower := strings.ToLower(note)
	for _, m := range kindMarkers {
		if strings.Contains(lower, m.marker) {
			return m.kind
		}
	}
	return KindNote
}

// LastByKind returns the most recent activity instant of the given kind.
// The second return is false when the log has no such entry.
func LastByKind(activities []Activity, kind Kind) (time.Time, bool) {
	var last time.Time
	found := false
	for _, a := range activities {
		if a.Kind != kind {
			continue
		}
		if a.At.After(last) {
			last = a.At
			found = true
		}
	}
	return last, found
}

// LastAny returns the most recent activity instant of any kind.
func LastAny(activities []Activity) (time.Time, bool) {
	var last time.Time
	found := false
	for _, a := range activities {
		if a.At.After(last) {
			last = a.At
			found = true
		}
	}
	return last, found
}
