// Package statustext parses pasted Dota 2 `status` console dumps into a
// roster and identifies which entries belong to known app users.
//
// Parsing is pure and tolerant: lines that match neither the MatchID pattern
// nor a player line are ignored, so a partial or garbled paste yields a
// partial roster instead of an error. The one hard failure is a duplicate
// slot number, which always means a corrupted paste.
package statustext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	// "[Client]   Lobby MatchID: 7654321"
	matchIDRe = regexp.MustCompile(`\[Client\]\s+Lobby MatchID:\s+(\d+)`)
	// "[Client]   2  [U:1:12345]  'playername'"
	playerRe = regexp.MustCompile(`^\[Client\]\s+(\d+)\s+[^']+\s*'(.+)'$`)
)

// RosterEntry is one player line from a status paste. Team is derived from
// the slot number: slots 1-5 are team 1, slots 6-10 are team 2.
type RosterEntry struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
	Team int    `json:"team"`
}

// Result is the outcome of parsing one status paste. MatchID is empty when
// the paste carried no Lobby MatchID line.
type Result struct {
	MatchID string        `json:"match_id,omitempty"`
	Roster  []RosterEntry `json:"roster"`
}

// DuplicateSlotError reports a slot number appearing more than once in a
// single paste. Duplicate slots indicate corrupted input and are rejected
// rather than silently kept.
type DuplicateSlotError struct {
	Slot int
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("status text lists slot %d more than once", e.Slot)
}

// TeamForSlot returns the team (1 or 2) a slot number belongs to.
func TeamForSlot(slot int) int {
	if slot <= 5 {
		return 1
	}
	return 2
}

// Parse extracts the match identifier and roster from raw status text.
// Deterministic and side-effect free; safe to re-run on every keystroke.
// The first MatchID line wins, slot 0 (SourceTV) is dropped, and empty
// input yields a zero-value Result.
func Parse(text string) (Result, error) {
	var result Result
	seen := make(map[int]bool)

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if m := matchIDRe.FindStringSubmatch(line); m != nil {
			if result.MatchID == "" {
				result.MatchID = m[1]
			}
			continue
		}

		m := playerRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		slot, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if slot == 0 {
			// SourceTV / broadcast entry
			continue
		}
		if seen[slot] {
			return Result{}, &DuplicateSlotError{Slot: slot}
		}
		seen[slot] = true

		result.Roster = append(result.Roster, RosterEntry{
			Slot: slot,
			Name: m[2],
			Team: TeamForSlot(slot),
		})
	}

	return result, nil
}

// IdentifyKnown maps roster slots to profile IDs for entries whose name
// appears in the index. The index maps lowercase dota names to profile IDs;
// building it (and resolving its collisions) is the caller's concern.
// Pure — safe to call speculatively before anything is persisted.
func IdentifyKnown(roster []RosterEntry, index map[string]uuid.UUID) map[int]uuid.UUID {
	identified := make(map[int]uuid.UUID)
	for _, entry := range roster {
		if id, ok := index[strings.ToLower(entry.Name)]; ok {
			identified[entry.Slot] = id
		}
	}
	return identified
}
