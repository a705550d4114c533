package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

func snapshotOf(leads ...model.Lead) model.Snapshot {
	return model.Snapshot{CapturedAt: time.Now(), Leads: leads}
}

func namedLead(created, name, owner, status string) model.Lead {
	return model.Lead{CreatedAt: created, Name: name, Owner: owner, Status: status}
}

func TestDiff_ColdStartProducesNothing(t *testing.T) {
	t.Parallel()

	current := snapshotOf(
		namedLead("2026-08-01 10:00", "Asha Rao", "", "New"),
		namedLead("2026-08-02 11:00", "Vikram Shah", "Priya", "Hot"),
	)

	result := Diff(model.Snapshot{}, current, "priya")
	assert.True(t, result.Empty())
}

func TestDiff_DetectsNewLeads(t *testing.T) {
	t.Parallel()

	previous := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", "", "New"))
	current := snapshotOf(
		namedLead("2026-08-01 10:00", "Asha Rao", "", "New"),
		namedLead("2026-08-02 11:00", "Vikram Shah", "", "New"),
	)

	result := Diff(previous, current, "priya")
	require.Len(t, result.NewLeads, 1)
	assert.Equal(t, "Vikram Shah", result.NewLeads[0].Name)
	assert.Empty(t, result.ReassignedToRecipient)
	assert.Empty(t, result.NewlyBooked)
}

func TestDiff_SkipsRowsWithoutIdentity(t *testing.T) {
	t.Parallel()

	previous := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", "", "New"))
	current := snapshotOf(
		namedLead("2026-08-01 10:00", "Asha Rao", "", "New"),
		namedLead("2026-08-02 11:00", "", "", "New"),
		namedLead("", "Vikram Shah", "", "New"),
	)

	result := Diff(previous, current, "priya")
	assert.True(t, result.Empty())
}

func TestDiff_DuplicateIdentityFirstRowWins(t *testing.T) {
	t.Parallel()

	previous := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", "", "New"))
	current := snapshotOf(
		namedLead("2026-08-02 11:00", "Vikram Shah", "", "New"),
		namedLead("2026-08-02 11:00", "Vikram Shah", "", "Hot"),
	)

	result := Diff(previous, current, "priya")
	require.Len(t, result.NewLeads, 1)
	assert.Equal(t, "New", result.NewLeads[0].Status)
}

func TestDiff_Reassignment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		prevOwner string
		curOwner  string
		recipient string
		want      bool
	}{
		{"assigned from another agent", "Dev", "Priya", "priya", true},
		{"assigned from unowned", "", "Priya", "priya", true},
		{"placeholder owner counts as unowned", "N/A", "Priya", "priya", true},
		{"case folded match", "Dev", "PRIYA", "Priya", true},
		{"assigned to someone else", "Dev", "Kiran", "priya", false},
		{"owner unchanged", "Priya", "Priya", "priya", false},
		{"signed-out recipient", "Dev", "Priya", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			previous := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", tc.prevOwner, "Hot"))
			current := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", tc.curOwner, "Hot"))

			result := Diff(previous, current, tc.recipient)
			if tc.want {
				require.Len(t, result.ReassignedToRecipient, 1)
				assert.Equal(t, "Asha Rao", result.ReassignedToRecipient[0].Name)
			} else {
				assert.Empty(t, result.ReassignedToRecipient)
			}
		})
	}
}

func TestDiff_NewlyBooked(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		prevStatus string
		curStatus  string
		want       bool
	}{
		{"negotiation to booked", "In Negotiation", "Booked with us", true},
		{"hot to confirmed", "Hot Lead", "Confirmed", true},
		{"already booked", "Booked", "Booked with us", false},
		{"booked elsewhere is a loss", "In Negotiation", "Booked Elsewhere", false},
		{"still open", "New", "Hot Lead", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			previous := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", "Priya", tc.prevStatus))
			current := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", "Priya", tc.curStatus))

			result := Diff(previous, current, "priya")
			if tc.want {
				require.Len(t, result.NewlyBooked, 1)
			} else {
				assert.Empty(t, result.NewlyBooked)
			}
		})
	}
}

func TestDiff_DisappearedLeadIsSilent(t *testing.T) {
	t.Parallel()

	previous := snapshotOf(
		namedLead("2026-08-01 10:00", "Asha Rao", "", "New"),
		namedLead("2026-08-02 11:00", "Vikram Shah", "", "New"),
	)
	current := snapshotOf(namedLead("2026-08-01 10:00", "Asha Rao", "", "New"))

	result := Diff(previous, current, "priya")
	assert.True(t, result.Empty())
}

func TestDiff_IgnoresRowPositionShifts(t *testing.T) {
	t.Parallel()

	asha := namedLead("2026-08-01 10:00", "Asha Rao", "", "New")
	vikram := namedLead("2026-08-02 11:00", "Vikram Shah", "", "New")

	previous := snapshotOf(asha, vikram)
	previous.Leads[0].RowIndex = 2
	previous.Leads[1].RowIndex = 3

	// A deleted row above shifted everything up.
	current := snapshotOf(vikram, asha)
	current.Leads[0].RowIndex = 2
	current.Leads[1].RowIndex = 3

	result := Diff(previous, current, "priya")
	assert.True(t, result.Empty())
}
