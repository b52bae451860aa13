package statustext

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const samplePaste = `[Client]   Lobby MatchID: 7654321
[Client]   0  [A:1:12345]  'SourceTV'
[Client]   1  [U:1:11111]  'alice'
[Client]   2  [U:1:22222]  'bob'
[Client]   6  [U:1:33333]  'carol'
some unrelated console noise
[Client]   Lobby MatchID: 9999999
`

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantMatchID string
		wantRoster  []RosterEntry
		wantErrSlot int // 0 = no error expected
	}{
		{
			name:        "full paste",
			text:        samplePaste,
			wantMatchID: "7654321",
			wantRoster: []RosterEntry{
				{Slot: 1, Name: "alice", Team: 1},
				{Slot: 2, Name: "bob", Team: 1},
				{Slot: 6, Name: "carol", Team: 2},
			},
		},
		{
			name: "empty input",
			text: "",
		},
		{
			name: "noise only",
			text: "ping 23ms\nnet_graph 1\n",
		},
		{
			name:        "roster without match id",
			text:        "[Client]   3  [U:1:1]  'dave'",
			wantMatchID: "",
			wantRoster:  []RosterEntry{{Slot: 3, Name: "dave", Team: 1}},
		},
		{
			name: "name with internal quotes",
			text: "[Client]   4  [U:1:1]  'o'brien'",
			wantRoster: []RosterEntry{
				{Slot: 4, Name: "o'brien", Team: 1},
			},
		},
		{
			name:        "windows line endings",
			text:        "[Client]   Lobby MatchID: 42\r\n[Client]   5  [U:1:1]  'eve'\r\n",
			wantMatchID: "42",
			wantRoster:  []RosterEntry{{Slot: 5, Name: "eve", Team: 1}},
		},
		{
			name:        "duplicate slot rejected",
			text:        "[Client]   2  [U:1:1]  'x'\n[Client]   2  [U:1:2]  'y'",
			wantErrSlot: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErrSlot != 0 {
				var dup *DuplicateSlotError
				if assert.True(t, errors.As(err, &dup), "expected DuplicateSlotError, got %v", err) {
					assert.Equal(t, tt.wantErrSlot, dup.Slot)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantMatchID, got.MatchID)
			assert.Equal(t, tt.wantRoster, got.Roster)
		})
	}
}

func TestParseFirstMatchIDWins(t *testing.T) {
	got, err := Parse("[Client]   Lobby MatchID: 111\n[Client]   Lobby MatchID: 222\n")
	assert.NoError(t, err)
	assert.Equal(t, "111", got.MatchID)
}

func TestParseSkipsSourceTV(t *testing.T) {
	got, err := Parse("[Client]   0  [A:1:1]  'SourceTV'\n[Client]   1  [U:1:1]  'alice'\n")
	assert.NoError(t, err)
	assert.Len(t, got.Roster, 1)
	assert.Equal(t, 1, got.Roster[0].Slot)
}

func TestTeamForSlot(t *testing.T) {
	for slot := 1; slot <= 5; slot++ {
		assert.Equal(t, 1, TeamForSlot(slot), "slot %d", slot)
	}
	for slot := 6; slot <= 10; slot++ {
		assert.Equal(t, 2, TeamForSlot(slot), "slot %d", slot)
	}
}

func TestIdentifyKnown(t *testing.T) {
	aliceID := uuid.New()
	carolID := uuid.New()
	index := map[string]uuid.UUID{
		"alice": aliceID,
		"carol": carolID,
	}
	roster := []RosterEntry{
		{Slot: 1, Name: "ALICE", Team: 1},
		{Slot: 2, Name: "bob", Team: 1},
		{Slot: 6, Name: "carol", Team: 2},
	}

	got := IdentifyKnown(roster, index)

	assert.Equal(t, map[int]uuid.UUID{1: aliceID, 6: carolID}, got)
}
