package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a match or roster row does not exist.
var ErrNotFound = errors.New("match not found")

// List returns all matches, newest first.
func List(ctx context.Context, pool *pgxpool.Pool) ([]Match, error) {
	rows, err := pool.Query(ctx, "matches_list")
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// Get returns a single match by internal id.
func Get(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (*Match, error) {
	m, err := scanMatch(pool.QueryRow(ctx, "match_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// GetByDotaMatchID returns the match logged for a Dota match id, or
// ErrNotFound when none exists.
func GetByDotaMatchID(ctx context.Context, pool *pgxpool.Pool, dotaMatchID int64) (*Match, error) {
	m, err := scanMatch(pool.QueryRow(ctx, "match_by_dota_id", dotaMatchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// Roster returns the match_players rows for a match in slot order, joined
// with each player's stored steam account id.
func Roster(ctx context.Context, pool *pgxpool.Pool, matchID uuid.UUID) ([]RosterRow, error) {
	rows, err := pool.Query(ctx, "roster_by_match", matchID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()

	var roster []RosterRow
	for rows.Next() {
		var r RosterRow
		if err := rows.Scan(
			&r.ID, &r.MatchID, &r.PlayerID, &r.Slot, &r.Team,
			&r.DisplayName, &r.HeroID, &r.Kills, &r.Deaths, &r.Assists,
			&r.SteamID,
		); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		roster = append(roster, r)
	}
	return roster, rows.Err()
}

// Delete removes a match; its match_players rows cascade. Players, notes,
// and tags are untouched — they key off player ids.
func Delete(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	tag, err := pool.Exec(ctx, "DELETE FROM matches WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOurTeam records which side of the roster is "us".
func SetOurTeam(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, slot *int) error {
	tag, err := pool.Exec(ctx,
		"UPDATE matches SET our_team_slot = $2 WHERE id = $1", id, slot)
	if err != nil {
		return fmt.Errorf("set our team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReassignPlayerTeam moves one roster row to the other team (manual fixup
// for pastes taken before teams were final).
func ReassignPlayerTeam(ctx context.Context, pool *pgxpool.Pool, matchID, playerID uuid.UUID, team int) error {
	tag, err := pool.Exec(ctx,
		"UPDATE match_players SET team = $3 WHERE match_id = $1 AND player_id = $2",
		matchID, playerID, team)
	if err != nil {
		return fmt.Errorf("reassign player team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StampParseRequested records that a replay parse was (re-)requested: bumps
// the attempt counter and resets the request timestamp the harvest cooldown
// is measured from.
func StampParseRequested(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	_, err := pool.Exec(ctx, `
		UPDATE matches
		SET parse_requested_at = NOW(),
			parse_attempts = parse_attempts + 1
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("stamp parse request: %w", err)
	}
	return nil
}

// RecordFetched stores the raw OpenDota blob and marks the match fetched.
// Last write wins when an interactive fetch races the backfill job; both
// blobs describe the same finished match.
func RecordFetched(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, raw []byte) error {
	_, err := pool.Exec(ctx, `
		UPDATE matches
		SET opendota_fetched = true, opendota_data = $2
		WHERE id = $1`, id, raw)
	if err != nil {
		return fmt.Errorf("record fetched data: %w", err)
	}
	return nil
}

// BackfillRow is the slice of a match the backfill job needs for its
// eligibility decisions.
type BackfillRow struct {
	ID               uuid.UUID
	DotaMatchID      int64
	ParseRequestedAt *time.Time
	ParseAttempts    int
	CreatedAt        time.Time
}

// HarvestCandidates returns unfetched matches with an outstanding parse
// request, oldest request first. The precise cooldown/attempt/recency
// windows are applied by the caller.
func HarvestCandidates(ctx context.Context, pool *pgxpool.Pool) ([]BackfillRow, error) {
	return queryBackfillRows(ctx, pool, "backfill_harvest_candidates")
}

// RequestCandidates returns unfetched matches that never had a parse
// requested, oldest first.
func RequestCandidates(ctx context.Context, pool *pgxpool.Pool) ([]BackfillRow, error) {
	return queryBackfillRows(ctx, pool, "backfill_request_candidates")
}

func queryBackfillRows(ctx context.Context, pool *pgxpool.Pool, stmt string) ([]BackfillRow, error) {
	rows, err := pool.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stmt, err)
	}
	defer rows.Close()

	var out []BackfillRow
	for rows.Next() {
		var r BackfillRow
		if err := rows.Scan(&r.ID, &r.DotaMatchID, &r.ParseRequestedAt, &r.ParseAttempts, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backfill row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (*Match, error) {
	var m Match
	if err := row.Scan(
		&m.ID, &m.DotaMatchID, &m.RawStatusText, &m.OurTeamSlot,
		&m.OpenDotaFetched, &m.OpenDotaData, &m.ParseRequestedAt,
		&m.ParseAttempts, &m.CreatedBy, &m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}
	return &m, nil
}
