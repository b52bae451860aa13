// Package player owns persistent player identities and their annotations
// (tags, notes), plus the app-user profiles the roster matcher reads.
package player

import (
	"time"

	"github.com/google/uuid"
)

// Player is one persistent cross-match identity. KnownNames accumulates
// display-name aliases; matching against it is case-insensitive, stored
// casing and insertion order are preserved for display.
type Player struct {
	ID                 uuid.UUID  `json:"id"`
	KnownNames         []string   `json:"known_names"`
	SteamAccountID     *int64     `json:"steam_account_id"`
	TopHeroes          []HeroStat `json:"top_heroes"`
	TopHeroesUpdatedAt *time.Time `json:"top_heroes_updated_at"`
	ProfileID          *uuid.UUID `json:"profile_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HeroStat is one entry of a player's stored top-heroes list.
type HeroStat struct {
	HeroID int `json:"hero_id"`
	Games  int `json:"games"`
	Win    int `json:"win"`
}

// Profile is an app user. Auth happens upstream; this carries the identity
// data the roster matcher needs.
type Profile struct {
	ID              uuid.UUID `json:"id"`
	DiscordUsername *string   `json:"discord_username"`
	DisplayName     *string   `json:"display_name"`
	DotaNames       []string  `json:"dota_names"`
	SteamAccountID  *int64    `json:"steam_account_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Tag is a shared label applied to players.
type Tag struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedBy *uuid.UUID `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// PlayerTag attaches a tag to a player.
type PlayerTag struct {
	PlayerID  uuid.UUID  `json:"player_id"`
	TagID     uuid.UUID  `json:"tag_id"`
	TaggedBy  *uuid.UUID `json:"tagged_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// Note is a free-form annotation on a player, optionally tied to the match
// it was written during.
type Note struct {
	ID        uuid.UUID  `json:"id"`
	PlayerID  uuid.UUID  `json:"player_id"`
	AuthorID  *uuid.UUID `json:"author_id"`
	Content   string     `json:"content"`
	MatchID   *uuid.UUID `json:"match_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
