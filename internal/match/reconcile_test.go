package match

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/avelins/dotalog/internal/opendota"
)

func strptr(s string) *string { return &s }
func i64ptr(n int64) *int64   { return &n }

func testRoster() []RosterRow {
	rows := make([]RosterRow, 0, 10)
	names := []string{"alice", "bob", "carol", "dave", "eve", "frank", "grace", "heidi", "ivan", "judy"}
	for i, name := range names {
		slot := i + 1
		team := 1
		if slot > 5 {
			team = 2
		}
		rows = append(rows, RosterRow{
			ID:          uuid.New(),
			MatchID:     uuid.Nil,
			PlayerID:    uuid.New(),
			Slot:        slot,
			Team:        team,
			DisplayName: strptr(name),
		})
	}
	return rows
}

func TestTranslateSlot(t *testing.T) {
	tests := []struct {
		playerSlot int
		want       int
	}{
		{0, 1},
		{4, 5},
		{128, 6},
		{132, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TranslateSlot(tt.playerSlot), "player_slot %d", tt.playerSlot)
	}
}

func TestPlanReconcileMatchesByName(t *testing.T) {
	roster := testRoster()
	players := []opendota.Player{
		// Personaname matches roster slot 3 even though the seat differs.
		{PlayerSlot: 0, HeroID: 14, Kills: 7, Deaths: 2, Assists: 11, Personaname: strptr("CAROL")},
	}

	plan := PlanReconcile(roster, players)

	assert.Len(t, plan.Updates, 1)
	assert.Equal(t, roster[2].ID, plan.Updates[0].RowID)
	assert.Equal(t, StatLine{HeroID: 14, Kills: 7, Deaths: 2, Assists: 11}, plan.Updates[0].Stats)
	assert.Equal(t, 1, plan.Total)
}

func TestPlanReconcileSlotFallback(t *testing.T) {
	roster := testRoster()
	players := []opendota.Player{
		// No personaname: only the seat can place this record.
		{PlayerSlot: 129, HeroID: 99, Kills: 3},
	}

	plan := PlanReconcile(roster, players)

	assert.Len(t, plan.Updates, 1)
	assert.Equal(t, roster[6].ID, plan.Updates[0].RowID) // slot 7
}

func TestPlanReconcileOneUpdatePerRow(t *testing.T) {
	roster := testRoster()
	players := []opendota.Player{
		// Matches roster slot 1 by name in pass 1.
		{PlayerSlot: 3, HeroID: 10, Personaname: strptr("alice")},
		// Sits in seat 0 (our slot 1) but slot 1 is already taken, so this
		// record matches nothing.
		{PlayerSlot: 0, HeroID: 20, Personaname: strptr("someone else")},
	}
	// Shrink the roster to one row so the second record has nowhere to go.
	roster = roster[:1]

	plan := PlanReconcile(roster, players)

	assert.Len(t, plan.Updates, 1)
	assert.Equal(t, 10, plan.Updates[0].Stats.HeroID)
	assert.Equal(t, 2, plan.Total)
}

func TestPlanReconcileNameAndSlotSameRow(t *testing.T) {
	roster := testRoster()
	// This record matches roster slot 1 both by name (pass 1) and by seat
	// (pass 2). The row must be updated exactly once and nothing else touched.
	players := []opendota.Player{
		{PlayerSlot: 0, HeroID: 33, Kills: 5, Personaname: strptr("alice")},
	}

	plan := PlanReconcile(roster, players)

	assert.Len(t, plan.Updates, 1)
	assert.Equal(t, roster[0].ID, plan.Updates[0].RowID)
}

func TestPlanReconcileIdempotent(t *testing.T) {
	roster := testRoster()
	players := []opendota.Player{
		{PlayerSlot: 0, HeroID: 1, Personaname: strptr("alice")},
		{PlayerSlot: 1, HeroID: 2, Personaname: strptr("unknown name")},
		{PlayerSlot: 128, HeroID: 3},
	}

	first := PlanReconcile(roster, players)
	second := PlanReconcile(roster, players)

	assert.Equal(t, first, second)
}

func TestPlanReconcileSteamBackfill(t *testing.T) {
	roster := testRoster()
	// Row 1 already has a steam id; row 2 does not.
	roster[0].SteamID = i64ptr(555)

	players := []opendota.Player{
		{PlayerSlot: 0, AccountID: i64ptr(111), Personaname: strptr("alice")},
		{PlayerSlot: 1, AccountID: i64ptr(222), Personaname: strptr("bob")},
		{PlayerSlot: 2}, // no account id, nothing to backfill
	}

	plan := PlanReconcile(roster, players)

	assert.Len(t, plan.Backfill, 1)
	assert.Equal(t, roster[1].PlayerID, plan.Backfill[0].PlayerID)
	assert.Equal(t, int64(222), plan.Backfill[0].AccountID)
}

func TestHasRealHeroData(t *testing.T) {
	assert.False(t, HasRealHeroData(nil))
	assert.False(t, HasRealHeroData([]opendota.Player{{HeroID: 0}, {HeroID: 0}}))
	assert.True(t, HasRealHeroData([]opendota.Player{{HeroID: 0}, {HeroID: 42}}))
}
