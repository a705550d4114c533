package model

import "time"

// MutationOp identifies the kind of write a queued mutation performs.
type MutationOp string

const (
	// OpAppend adds a brand-new lead row to the remote store.
	OpAppend MutationOp = "append"

	// OpUpdate applies field deltas to an existing lead, located by
	// identity (never by a cached row address).
	OpUpdate MutationOp = "update"
)

// QueuedMutation is a durable, not-yet-confirmed write against the remote
// store. Mutations are created when a write fails for a transient reason or
// when the device is known to be offline, and removed only after a confirmed
// successful replay. Each mutation is atomic from the queue's perspective.
type QueuedMutation struct {
	// ID is the unique identifier of the queue entry.
	ID string `json:"id"`

	// Op is the operation kind.
	Op MutationOp `json:"op"`

	// Key is the target lead identity for updates; zero for appends.
	Key LeadKey `json:"key"`

	// Fields holds the field-name to new-value deltas for updates.
	Fields map[string]string `json:"fields,omitempty"`

	// Lead is the full payload for appends.
	Lead *Lead `json:"lead,omitempty"`

	// SpreadsheetID pins the replay target so a later config change cannot
	// redirect a queued write to a different book.
	SpreadsheetID string `json:"spreadsheet_id"`

	// EnqueuedAt is when the mutation entered the queue.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Attempts counts replay attempts so far.
	Attempts int `json:"attempts"`

	// LastError is the message of the most recent failed replay, for
	// status surfaces. Empty until a replay has failed.
	LastError string `json:"last_error,omitempty"`
}
