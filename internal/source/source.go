package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// ErrorKind classifies a remote store failure so callers can decide
// between queueing a retry and surfacing the error.
type ErrorKind string

const (
	// KindNetwork covers transport failures, timeouts, and 5xx responses.
	KindNetwork ErrorKind = "network"

	// KindAuth covers 401 and 403 responses.
	KindAuth ErrorKind = "auth"

	// KindNotFound covers 404 responses and rows that no longer exist.
	KindNotFound ErrorKind = "not_found"

	// KindValidation covers requests the remote store rejected as malformed.
	KindValidation ErrorKind = "validation"

	// KindRateLimited covers 429 responses that survived client-side retries.
	KindRateLimited ErrorKind = "rate_limited"

	// KindConfig covers misconfiguration such as a missing spreadsheet ID.
	KindConfig ErrorKind = "config"

	// KindStaleAddress is returned when a row address resolved from a past
	// snapshot no longer holds the expected lead.
	KindStaleAddress ErrorKind = "stale_address"
)

// Error is the typed failure returned by remote store implementations.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s): %s", e.Op, e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind carried by err, or an empty kind when err
// is not a remote store error.
func KindOf(err error) ErrorKind {
	var srcErr *Error
	if errors.As(err, &srcErr) {
		return srcErr.Kind
	}
	return ""
}

// IsAuth reports whether err (or any error in its chain) is an
// authentication failure.
func IsAuth(err error) bool {
	return KindOf(err) == KindAuth
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsNotFound reports whether err is a missing-row failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// Retryable reports whether the failed operation is likely to succeed on
// a later attempt and may safely be queued for replay.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindRateLimited, KindStaleAddress:
		return true
	}
	return false
}

// RemoteStore defines the contract for the remote spreadsheet backing the
// lead pipeline. FetchAll is the bulk read used by every sync cycle; the
// write operations address rows by lead identity, never by cached row
// number alone.
type RemoteStore interface {
	// FetchAll retrieves every lead row. forceRefresh asks the remote to
	// bypass any server-side caching it may do.
	FetchAll(ctx context.Context, forceRefresh bool) (model.Snapshot, error)

	// FetchUsers retrieves the user directory.
	FetchUsers(ctx context.Context) ([]model.User, error)

	// FetchBroadcasts retrieves admin broadcast messages.
	FetchBroadcasts(ctx context.Context) ([]model.Broadcast, error)

	// Append adds a new lead row after the last populated row.
	Append(ctx context.Context, lead model.Lead) error

	// UpdateByIdentity writes the given cell values to the row currently
	// holding the lead identified by key. The row is re-resolved against
	// fresh data before the write.
	UpdateByIdentity(ctx context.Context, key model.LeadKey, fields map[string]string) error
}
