package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/statustext"
)

// ErrMatchExists is returned when a match with the same Dota match id is
// already logged and overwrite was not requested.
var ErrMatchExists = errors.New("match already logged for this dota match id")

// CreateInput is a confirmed status paste ready to be persisted.
type CreateInput struct {
	RawStatusText string
	OurTeamSlot   *int
	CreatedBy     *uuid.UUID
	// Overwrite deletes any existing match with the same Dota match id
	// (cascading its roster rows) before creating the new one. Player
	// records, notes, and tags survive — they key off player ids.
	Overwrite bool
}

// Create parses the status text and persists the match with its full roster.
// For each roster entry it finds or creates the persistent player identity:
// an existing player whose known_names contains the parsed name
// (case-insensitively) absorbs the name into its alias set; otherwise a new
// player is created. When several players share the name, the most recently
// active one wins.
//
// The whole workflow — overwrite, match insert, every find-or-create, every
// roster row — runs in one transaction. A failure partway commits nothing;
// a partial roster would corrupt the identity merge.
func Create(ctx context.Context, pool *pgxpool.Pool, in CreateInput) (*Match, error) {
	parsed, err := statustext.Parse(in.RawStatusText)
	if err != nil {
		return nil, err
	}

	var dotaMatchID *int64
	if parsed.MatchID != "" {
		id, err := strconv.ParseInt(parsed.MatchID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse dota match id %q: %w", parsed.MatchID, err)
		}
		dotaMatchID = &id
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if dotaMatchID != nil {
		var existingID uuid.UUID
		err := tx.QueryRow(ctx,
			"SELECT id FROM matches WHERE dota_match_id = $1", *dotaMatchID,
		).Scan(&existingID)
		switch {
		case err == nil:
			if !in.Overwrite {
				return nil, ErrMatchExists
			}
			if _, err := tx.Exec(ctx, "DELETE FROM matches WHERE id = $1", existingID); err != nil {
				return nil, fmt.Errorf("delete existing match: %w", err)
			}
		case isNoRows(err):
			// first time we see this dota match id
		default:
			return nil, fmt.Errorf("check existing match: %w", err)
		}
	}

	m := &Match{OurTeamSlot: in.OurTeamSlot, CreatedBy: in.CreatedBy, DotaMatchID: dotaMatchID}
	err = tx.QueryRow(ctx, `
		INSERT INTO matches (dota_match_id, raw_status_text, our_team_slot, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, raw_status_text, created_at`,
		dotaMatchID, in.RawStatusText, in.OurTeamSlot, in.CreatedBy,
	).Scan(&m.ID, &m.RawStatusText, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Someone logged the same dota match id between our check and
			// the insert; the storage constraint closes that race.
			return nil, ErrMatchExists
		}
		return nil, fmt.Errorf("insert match: %w", err)
	}

	for _, entry := range parsed.Roster {
		playerID, err := findOrCreatePlayer(ctx, tx, entry.Name)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO match_players (match_id, player_id, slot, team, display_name)
			VALUES ($1, $2, $3, $4, $5)`,
			m.ID, playerID, entry.Slot, entry.Team, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("insert roster slot %d: %w", entry.Slot, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

// findOrCreatePlayer resolves a parsed display name to a persistent player
// id, unioning the name into the matched player's alias set.
func findOrCreatePlayer(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, error) {
	var id uuid.UUID
	var knownNames []string
	err := tx.QueryRow(ctx, `
		SELECT id, known_names FROM players
		WHERE EXISTS (
			SELECT 1 FROM unnest(known_names) AS n WHERE lower(n) = lower($1)
		)
		ORDER BY updated_at DESC
		LIMIT 1`, name,
	).Scan(&id, &knownNames)

	switch {
	case err == nil:
		updated, changed := UnionName(knownNames, name)
		if changed {
			if _, err := tx.Exec(ctx, `
				UPDATE players SET known_names = $2, updated_at = NOW()
				WHERE id = $1`, id, updated); err != nil {
				return uuid.Nil, fmt.Errorf("union known name: %w", err)
			}
		} else {
			// Still activity: the tie-break policy keys off updated_at.
			if _, err := tx.Exec(ctx,
				"UPDATE players SET updated_at = NOW() WHERE id = $1", id); err != nil {
				return uuid.Nil, fmt.Errorf("touch player: %w", err)
			}
		}
		return id, nil

	case isNoRows(err):
		err := tx.QueryRow(ctx, `
			INSERT INTO players (known_names, top_heroes)
			VALUES ($1, '[]') RETURNING id`,
			[]string{name},
		).Scan(&id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("create player for %q: %w", name, err)
		}
		return id, nil

	default:
		return uuid.Nil, fmt.Errorf("look up player by name: %w", err)
	}
}

// UnionName adds name to names unless an entry already matches it
// case-insensitively. Insertion order (display order) is preserved; the
// stored casing of an existing alias is never rewritten.
func UnionName(names []string, name string) ([]string, bool) {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return names, false
		}
	}
	return append(append([]string(nil), names...), name), true
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
