// Package match owns logged matches: creation from a parsed status paste
// (including the cross-match player identity merge) and reconciliation of
// OpenDota per-player stats onto roster rows.
package match

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Match is one logged game.
type Match struct {
	ID               uuid.UUID       `json:"id"`
	DotaMatchID      *int64          `json:"dota_match_id"`
	RawStatusText    *string         `json:"raw_status_text"`
	OurTeamSlot      *int            `json:"our_team_slot"`
	OpenDotaFetched  bool            `json:"opendota_fetched"`
	OpenDotaData     json.RawMessage `json:"opendota_data,omitempty"`
	ParseRequestedAt *time.Time      `json:"parse_requested_at"`
	ParseAttempts    int             `json:"parse_attempts"`
	CreatedBy        *uuid.UUID      `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RosterRow is one match_players row joined with the owning player's steam
// account id (needed for the reconciliation backfill).
type RosterRow struct {
	ID          uuid.UUID `json:"id"`
	MatchID     uuid.UUID `json:"match_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	Slot        int       `json:"slot"`
	Team        int       `json:"team"`
	DisplayName *string   `json:"display_name"`
	HeroID      *int      `json:"hero_id"`
	Kills       *int      `json:"kills"`
	Deaths      *int      `json:"deaths"`
	Assists     *int      `json:"assists"`
	SteamID     *int64    `json:"steam_account_id"`
}
