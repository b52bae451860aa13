package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/opendota"
)

// direSlotBase is the OpenDota player_slot value of the first dire seat.
const direSlotBase = 128

// TranslateSlot maps an OpenDota player_slot to our 1-10 slot numbering:
// 0-4 (radiant) become 1-5, 128-132 (dire) become 6-10.
func TranslateSlot(playerSlot int) int {
	if playerSlot <= 4 {
		return playerSlot + 1
	}
	return playerSlot - direSlotBase + 6
}

// StatLine is the per-player stat set copied from an OpenDota record.
type StatLine struct {
	HeroID  int
	Kills   int
	Deaths  int
	Assists int
}

// RowUpdate assigns a stat line to one roster row.
type RowUpdate struct {
	RowID uuid.UUID
	Stats StatLine
}

// SteamBackfill records an account id to store on a player that has none.
type SteamBackfill struct {
	PlayerID  uuid.UUID
	AccountID int64
}

// Plan is the complete set of writes one reconciliation will perform.
type Plan struct {
	Updates  []RowUpdate
	Backfill []SteamBackfill
	Total    int // external records considered
}

// PlanReconcile matches OpenDota per-player records onto roster rows.
//
// Two passes, at most one update per row. Pass 1 matches by lowercase
// personaname — the higher-confidence signal, since display names at paste
// time drift from OpenDota profile names. Pass 2 falls back to seat
// position for whatever pass 1 left unmatched; that is reliable because
// both rosters describe the same ten seats in the same order.
//
// Pure: re-planning the same inputs yields the same plan, so re-running a
// reconciliation is observably idempotent.
func PlanReconcile(roster []RosterRow, players []opendota.Player) Plan {
	nameMap := make(map[string]*RosterRow)
	slotMap := make(map[int]*RosterRow)
	for i := range roster {
		r := &roster[i]
		if r.DisplayName != nil && *r.DisplayName != "" {
			nameMap[strings.ToLower(*r.DisplayName)] = r
		}
		slotMap[r.Slot] = r
	}

	plan := Plan{Total: len(players)}
	matched := make(map[uuid.UUID]bool)
	backfilled := make(map[uuid.UUID]bool)

	apply := func(r *RosterRow, p opendota.Player) {
		matched[r.ID] = true
		plan.Updates = append(plan.Updates, RowUpdate{
			RowID: r.ID,
			Stats: StatLine{HeroID: p.HeroID, Kills: p.Kills, Deaths: p.Deaths, Assists: p.Assists},
		})
		// First writer wins; an already-stored steam id is never replaced.
		if p.AccountID != nil && r.SteamID == nil && !backfilled[r.PlayerID] {
			backfilled[r.PlayerID] = true
			plan.Backfill = append(plan.Backfill, SteamBackfill{PlayerID: r.PlayerID, AccountID: *p.AccountID})
		}
	}

	// Pass 1: identity-confident name matching.
	for _, p := range players {
		if p.Personaname == nil || *p.Personaname == "" {
			continue
		}
		r, ok := nameMap[strings.ToLower(*p.Personaname)]
		if !ok || matched[r.ID] {
			continue
		}
		apply(r, p)
	}

	// Pass 2: positional fallback for the rest.
	for _, p := range players {
		r, ok := slotMap[TranslateSlot(p.PlayerSlot)]
		if !ok || matched[r.ID] {
			continue
		}
		apply(r, p)
	}

	return plan
}

// HasRealHeroData reports whether the blob's players carry actual hero
// assignments. All-zero hero ids mean OpenDota has ingested the match but
// the replay parse has not landed yet. A heuristic, not a guarantee — the
// backfill job bounds its retries accordingly.
func HasRealHeroData(players []opendota.Player) bool {
	for _, p := range players {
		if p.HeroID != 0 {
			return true
		}
	}
	return false
}

// Reconcile loads the match roster, plans against the OpenDota records, and
// applies the plan. Returns how many roster rows were updated out of the
// external records considered.
func Reconcile(ctx context.Context, pool *pgxpool.Pool, matchID uuid.UUID, players []opendota.Player) (updated, total int, err error) {
	roster, err := Roster(ctx, pool, matchID)
	if err != nil {
		return 0, 0, err
	}

	plan := PlanReconcile(roster, players)

	for _, u := range plan.Updates {
		_, err := pool.Exec(ctx, `
			UPDATE match_players
			SET hero_id = $2, kills = $3, deaths = $4, assists = $5
			WHERE id = $1`,
			u.RowID, u.Stats.HeroID, u.Stats.Kills, u.Stats.Deaths, u.Stats.Assists)
		if err != nil {
			return updated, plan.Total, fmt.Errorf("update roster row %s: %w", u.RowID, err)
		}
		updated++
	}

	for _, b := range plan.Backfill {
		_, err := pool.Exec(ctx, `
			UPDATE players SET steam_account_id = $2
			WHERE id = $1 AND steam_account_id IS NULL`,
			b.PlayerID, b.AccountID)
		if err != nil {
			return updated, plan.Total, fmt.Errorf("backfill steam id for player %s: %w", b.PlayerID, err)
		}
	}

	return updated, plan.Total, nil
}
