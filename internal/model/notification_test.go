package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationKeyHash_Stable(t *testing.T) {
	t.Parallel()

	key := NotificationKey{Recipient: "priya", Source: "2024-05-01|asha verma", Action: "call_now"}
	first := key.Hash()
	assert.Equal(t, first, key.Hash())
	assert.Len(t, first, 32)
}

func TestNotificationKeyHash_DistinguishesComponents(t *testing.T) {
	t.Parallel()

	base := NotificationKey{Recipient: "priya", Source: "lead-a", Action: "call_now"}

	other := base
	other.Recipient = "ravi"
	assert.NotEqual(t, base.Hash(), other.Hash())

	other = base
	other.Source = "lead-b"
	assert.NotEqual(t, base.Hash(), other.Hash())

	other = base
	other.Action = "send_follow_up"
	assert.NotEqual(t, base.Hash(), other.Hash())

	// Field boundaries matter: shifting a byte across the separator must
	// change the hash.
	ab := NotificationKey{Recipient: "ab", Source: "c", Action: ""}
	ac := NotificationKey{Recipient: "a", Source: "bc", Action: ""}
	assert.NotEqual(t, ab.Hash(), ac.Hash())
}

func TestNewNotification_FillsDeterministicID(t *testing.T) {
	t.Parallel()

	key := NotificationKey{Recipient: "priya", Source: "lead-a", Action: "reassigned"}
	now := time.Now()

	n := NewNotification(key, CategoryReassigned, PriorityHigh, "Lead assigned to you", "body", now)
	require.Equal(t, key.Hash(), n.ID)
	assert.Equal(t, "priya", n.Recipient)
	assert.Equal(t, CategoryReassigned, n.Category)
	assert.Equal(t, PriorityHigh, n.Priority)
	assert.Equal(t, now, n.CreatedAt)
	assert.False(t, n.Read)
}
