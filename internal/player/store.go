package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a player, tag, or note does not exist.
var ErrNotFound = errors.New("not found")

// List returns all players, newest first.
func List(ctx context.Context, pool *pgxpool.Pool) ([]Player, error) {
	rows, err := pool.Query(ctx, "players_list")
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()
	return collectPlayers(rows)
}

// Get returns a single player.
func Get(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (*Player, error) {
	p, err := scanPlayer(pool.QueryRow(ctx, "player_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Search returns players with a known name containing the query,
// case-insensitively. An empty query returns nothing.
func Search(ctx context.Context, pool *pgxpool.Pool, query string) ([]Player, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	rows, err := pool.Query(ctx, `
		SELECT id, known_names, steam_account_id, top_heroes,
			top_heroes_updated_at, profile_id, created_at, updated_at
		FROM players
		WHERE EXISTS (
			SELECT 1 FROM unnest(known_names) AS n WHERE n ILIKE '%' || $1 || '%'
		)
		ORDER BY updated_at DESC`, query)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	defer rows.Close()
	return collectPlayers(rows)
}

// Delete removes a player. Roster rows, notes, and tag attachments cascade.
func Delete(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	tag, err := pool.Exec(ctx, "DELETE FROM players WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Merge folds the duplicate player into the target: unions known names,
// repoints roster rows, notes, and tag attachments, keeps the target's
// steam id (or adopts the duplicate's if the target has none), and deletes
// the duplicate. One transaction — name-only identity occasionally splits
// one human into two records, and this is the repair.
//
// When both records appear in the same match the duplicate's roster row is
// dropped, not repointed: one player cannot hold two seats, and the
// target's own stat line for that match stays untouched. The duplicate's
// stat line for such a match is lost with the row.
func Merge(ctx context.Context, pool *pgxpool.Pool, targetID, duplicateID uuid.UUID) error {
	if targetID == duplicateID {
		return fmt.Errorf("cannot merge a player into itself")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var targetNames, dupNames []string
	var targetSteam, dupSteam *int64
	if err := tx.QueryRow(ctx,
		"SELECT known_names, steam_account_id FROM players WHERE id = $1", targetID,
	).Scan(&targetNames, &targetSteam); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load target player: %w", err)
	}
	if err := tx.QueryRow(ctx,
		"SELECT known_names, steam_account_id FROM players WHERE id = $1", duplicateID,
	).Scan(&dupNames, &dupSteam); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load duplicate player: %w", err)
	}

	merged := targetNames
	for _, n := range dupNames {
		merged = unionName(merged, n)
	}
	steam := targetSteam
	if steam == nil {
		steam = dupSteam
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players SET known_names = $2, steam_account_id = $3, updated_at = NOW()
		WHERE id = $1`, targetID, merged, steam); err != nil {
		return fmt.Errorf("update target player: %w", err)
	}

	// Repoint match participation, skipping matches where both records
	// appear (the duplicate's row would collide on the slot constraint).
	if _, err := tx.Exec(ctx, `
		UPDATE match_players SET player_id = $1
		WHERE player_id = $2
		  AND match_id NOT IN (SELECT match_id FROM match_players WHERE player_id = $1)`,
		targetID, duplicateID); err != nil {
		return fmt.Errorf("repoint roster rows: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE notes SET player_id = $1 WHERE player_id = $2", targetID, duplicateID); err != nil {
		return fmt.Errorf("repoint notes: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE player_tags SET player_id = $1
		WHERE player_id = $2
		  AND tag_id NOT IN (SELECT tag_id FROM player_tags WHERE player_id = $1)`,
		targetID, duplicateID); err != nil {
		return fmt.Errorf("repoint tags: %w", err)
	}

	// Roster rows left behind in shared matches are dropped deliberately
	// (see doc comment). Delete them here rather than leaning on the cascade.
	if _, err := tx.Exec(ctx,
		"DELETE FROM match_players WHERE player_id = $1", duplicateID); err != nil {
		return fmt.Errorf("drop leftover roster rows: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM players WHERE id = $1", duplicateID); err != nil {
		return fmt.Errorf("delete duplicate player: %w", err)
	}

	return tx.Commit(ctx)
}

// SetTopHeroes stores a refreshed top-heroes list.
func SetTopHeroes(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, heroes []HeroStat) error {
	blob, err := json.Marshal(heroes)
	if err != nil {
		return fmt.Errorf("marshal top heroes: %w", err)
	}
	tag, err := pool.Exec(ctx, `
		UPDATE players SET top_heroes = $2, top_heroes_updated_at = NOW()
		WHERE id = $1`, id, blob)
	if err != nil {
		return fmt.Errorf("set top heroes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NameIndex builds the lowercase dota-name → profile-id index the roster
// matcher consumes. Collisions resolve last-writer-wins in profile creation
// order; two app users claiming the same dota name is already operator
// error.
func NameIndex(ctx context.Context, pool *pgxpool.Pool) (map[string]uuid.UUID, error) {
	rows, err := pool.Query(ctx, "profile_name_index")
	if err != nil {
		return nil, fmt.Errorf("load profile name index: %w", err)
	}
	defer rows.Close()

	index := make(map[string]uuid.UUID)
	for rows.Next() {
		var id uuid.UUID
		var names []string
		if err := rows.Scan(&id, &names); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		for _, n := range names {
			index[strings.ToLower(n)] = id
		}
	}
	return index, rows.Err()
}

// ListProfiles returns all app-user profiles.
func ListProfiles(ctx context.Context, pool *pgxpool.Pool) ([]Profile, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, discord_username, display_name, dota_names, steam_account_id, created_at
		FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.DiscordUsername, &p.DisplayName, &p.DotaNames, &p.SteamAccountID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func unionName(names []string, name string) []string {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return names
		}
	}
	return append(names, name)
}

func collectPlayers(rows pgx.Rows) ([]Player, error) {
	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	var heroes []byte
	if err := row.Scan(
		&p.ID, &p.KnownNames, &p.SteamAccountID, &heroes,
		&p.TopHeroesUpdatedAt, &p.ProfileID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	if len(heroes) > 0 {
		if err := json.Unmarshal(heroes, &p.TopHeroes); err != nil {
			return nil, fmt.Errorf("decode top heroes: %w", err)
		}
	}
	return &p, nil
}
