package player

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/opendota"
)

// topHeroesKept caps the stored list; the UI only ever shows the head.
const topHeroesKept = 20

// ErrNoSteamAccount is returned when a player has no steam account id to
// query OpenDota with (it gets backfilled by reconciliation eventually).
var ErrNoSteamAccount = errors.New("player has no steam account id")

// HeroProvider is the slice of the OpenDota client this refresh uses.
type HeroProvider interface {
	PlayerHeroes(ctx context.Context, accountID int64, turboOnly bool) ([]opendota.PlayerHero, error)
}

// RefreshTopHeroes pulls a player's turbo-mode hero stats from OpenDota and
// stores the most-played heroes on the player record.
func RefreshTopHeroes(ctx context.Context, pool *pgxpool.Pool, provider HeroProvider, id uuid.UUID) ([]HeroStat, error) {
	p, err := Get(ctx, pool, id)
	if err != nil {
		return nil, err
	}
	if p.SteamAccountID == nil {
		return nil, ErrNoSteamAccount
	}

	raw, err := provider.PlayerHeroes(ctx, *p.SteamAccountID, true)
	if err != nil {
		return nil, fmt.Errorf("fetch player heroes: %w", err)
	}

	heroes := TopHeroes(raw, topHeroesKept)
	if err := SetTopHeroes(ctx, pool, id, heroes); err != nil {
		return nil, err
	}
	return heroes, nil
}

// TopHeroes converts OpenDota's per-hero records into the stored shape,
// most-played first, keeping at most limit entries. Records with unplayable
// hero ids or zero games are dropped.
func TopHeroes(raw []opendota.PlayerHero, limit int) []HeroStat {
	heroes := make([]HeroStat, 0, len(raw))
	for _, h := range raw {
		heroID, err := strconv.Atoi(h.HeroID)
		if err != nil || heroID == 0 || h.Games == 0 {
			continue
		}
		heroes = append(heroes, HeroStat{HeroID: heroID, Games: h.Games, Win: h.Win})
	}
	sort.SliceStable(heroes, func(i, j int) bool { return heroes[i].Games > heroes[j].Games })
	if len(heroes) > limit {
		heroes = heroes[:limit]
	}
	return heroes
}
