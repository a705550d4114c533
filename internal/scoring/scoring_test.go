package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// ago renders a remark timestamp exactly h hours before now, in the local
// zone the parser assumes.
func ago(now time.Time, h int) string {
	return now.Add(-time.Duration(h) * time.Hour).Format("2006-01-02 15:04")
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 21, 18, 0, 0, 0, time.Local)

	cases := []struct {
		name     string
		lead     model.Lead
		wantOK   bool
		wantKind ActionKind
		wantPrio model.Priority
		wantScor int
		wantWhy  string
	}{
		{
			name: "hot lead uncalled past threshold",
			lead: model.Lead{
				CreatedAt: ago(now, 30),
				Name:      "Asha Rao",
				Status:    "Hot Lead",
				Owner:     "Priya",
				Remarks:   ago(now, 7) + " called, discussed Bali",
			},
			wantOK:   true,
			wantKind: ActionCallNow,
			wantPrio: model.PriorityHigh,
			wantScor: 41,
			wantWhy:  "hot lead with no call for 7h",
		},
		{
			name: "hot lead called recently",
			lead: model.Lead{
				CreatedAt: ago(now, 30),
				Name:      "Asha Rao",
				Status:    "Hot Lead",
				Owner:     "Priya",
				Remarks:   ago(now, 2) + " called, discussed Bali",
			},
			wantOK: false,
		},
		{
			name: "hot lead with no activity log anchors on creation",
			lead: model.Lead{
				CreatedAt: ago(now, 10),
				Name:      "Asha Rao",
				Status:    "Hot",
				Owner:     "Priya",
			},
			wantOK:   true,
			wantKind: ActionCallNow,
			wantPrio: model.PriorityHigh,
			wantScor: 44,
			wantWhy:  "hot lead with no call for 10h",
		},
		{
			name: "negotiation idle",
			lead: model.Lead{
				CreatedAt: ago(now, 40),
				Name:      "Vikram Shah",
				Status:    "In Negotiation",
				Owner:     "Priya",
				Remarks:   ago(now, 9) + " moved to negotiation",
			},
			wantOK:   true,
			wantKind: ActionPushNegotiation,
			wantPrio: model.PriorityHigh,
			wantScor: 31,
			wantWhy:  "negotiation idle for 9h",
		},
		{
			name: "proposal silent for half a day",
			lead: model.Lead{
				CreatedAt: ago(now, 40),
				Name:      "Meera Iyer",
				Status:    "Proposal Sent",
				Owner:     "Priya",
				Remarks:   ago(now, 13) + " sent proposal with pricing",
			},
			wantOK:   true,
			wantKind: ActionSendFollowUp,
			wantPrio: model.PriorityNormal,
			wantScor: 21,
			wantWhy:  "no reply 13h after proposal",
		},
		{
			name: "proposal silent for two days escalates to a call",
			lead: model.Lead{
				CreatedAt: ago(now, 80),
				Name:      "Meera Iyer",
				Status:    "Proposal Sent",
				Owner:     "Priya",
				Remarks:   ago(now, 49) + " sent proposal with pricing",
			},
			wantOK:   true,
			wantKind: ActionCallNow,
			wantPrio: model.PriorityHigh,
			wantScor: 36,
			wantWhy:  "no reply 49h after proposal",
		},
		{
			name: "client reply resets the proposal clock",
			lead: model.Lead{
				CreatedAt: ago(now, 80),
				Name:      "Meera Iyer",
				Status:    "Proposal Sent",
				Owner:     "Priya",
				Remarks: ago(now, 50) + " sent proposal with pricing\n" +
					ago(now, 5) + " client replied, wants discount",
			},
			wantOK: false,
		},
		{
			name: "unassigned lead waiting",
			lead: model.Lead{
				CreatedAt: ago(now, 3),
				Name:      "Rahul Jain",
				Status:    "New",
			},
			wantOK:   true,
			wantKind: ActionPickUpLead,
			wantPrio: model.PriorityHigh,
			wantScor: 26,
			wantWhy:  "unassigned for 3h",
		},
		{
			name: "owner placeholder counts as unassigned",
			lead: model.Lead{
				CreatedAt: ago(now, 3),
				Name:      "Rahul Jain",
				Status:    "Fresh enquiry",
				Owner:     "N/A",
			},
			wantOK:   true,
			wantKind: ActionPickUpLead,
			wantScor: 26,
			wantPrio: model.PriorityHigh,
			wantWhy:  "unassigned for 3h",
		},
		{
			name: "booked lead needs nothing",
			lead: model.Lead{
				CreatedAt: ago(now, 200),
				Name:      "Asha Rao",
				Status:    "Booked with us",
			},
			wantOK: false,
		},
		{
			name: "lost lead needs nothing",
			lead: model.Lead{
				CreatedAt: ago(now, 200),
				Name:      "Asha Rao",
				Status:    "Not interested",
			},
			wantOK: false,
		},
		{
			name: "overdue bonus is capped",
			lead: model.Lead{
				CreatedAt: ago(now, 150),
				Name:      "Asha Rao",
				Status:    "Hot Lead",
				Owner:     "Priya",
				Remarks:   ago(now, 100) + " called, no answer",
			},
			wantOK:   true,
			wantKind: ActionCallNow,
			wantPrio: model.PriorityHigh,
			wantScor: 64,
			wantWhy:  "hot lead with no call for 100h",
		},
		{
			name: "unreadable timestamps score nothing",
			lead: model.Lead{
				CreatedAt: "last week",
				Name:      "Asha Rao",
				Status:    "Hot Lead",
				Remarks:   "spoke at the expo, promising",
			},
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Evaluate(tc.lead, now)
			require.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.wantKind, got.Kind)
			assert.Equal(t, tc.wantPrio, got.Priority)
			assert.Equal(t, tc.wantScor, got.Score)
			assert.Equal(t, tc.wantWhy, got.Reason)
		})
	}
}

func TestEvaluate_HighestScoreWins(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 21, 18, 0, 0, 0, time.Local)

	// Hot and unassigned at once: the call rule (40+4) outranks the
	// pick-up rule (25+8).
	lead := model.Lead{
		CreatedAt: ago(now, 10),
		Name:      "Asha Rao",
		Status:    "Hot Lead",
	}

	got, ok := Evaluate(lead, now)
	require.True(t, ok)
	assert.Equal(t, ActionCallNow, got.Kind)
	assert.Equal(t, 44, got.Score)
}

func TestEvaluate_ReasonMentionsWholeHours(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 21, 18, 30, 0, 0, time.Local)
	lead := model.Lead{
		CreatedAt: ago(now, 7), // 18:30 minus 7h, so exactly 7h ago
		Name:      "Asha Rao",
		Status:    "Hot",
		Owner:     "Priya",
	}

	got, ok := Evaluate(lead, now)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("hot lead with no call for %dh", 7), got.Reason)
}

func TestScoreAndNextAction(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 21, 18, 0, 0, 0, time.Local)
	lead := model.Lead{
		CreatedAt: ago(now, 30),
		Name:      "Asha Rao",
		Status:    "Hot Lead",
		Owner:     "Priya",
		Remarks:   ago(now, 7) + " called, discussed Bali",
	}

	score := Score(lead, now)
	assert.Equal(t, 41, score)

	act, ok := NextAction(lead, score, now)
	require.True(t, ok)
	assert.Equal(t, ActionCallNow, act.Kind)
	assert.Equal(t, score, act.Score)

	booked := model.Lead{CreatedAt: ago(now, 30), Name: "Vikram Shah", Status: "Booked With Us"}
	assert.Zero(t, Score(booked, now))
	_, ok = NextAction(booked, 0, now)
	assert.False(t, ok)
}
