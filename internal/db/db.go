// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements the API and job layers
// run on every request. Prepared statements eliminate parse overhead.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Matches
		"match_by_id": `SELECT id, dota_match_id, raw_status_text, our_team_slot,
			opendota_fetched, opendota_data, parse_requested_at, parse_attempts,
			created_by, created_at FROM matches WHERE id = $1`,
		"match_by_dota_id": `SELECT id, dota_match_id, raw_status_text, our_team_slot,
			opendota_fetched, opendota_data, parse_requested_at, parse_attempts,
			created_by, created_at FROM matches WHERE dota_match_id = $1`,
		"matches_list": `SELECT id, dota_match_id, raw_status_text, our_team_slot,
			opendota_fetched, opendota_data, parse_requested_at, parse_attempts,
			created_by, created_at FROM matches ORDER BY created_at DESC`,

		// Roster (joined with player steam id for reconciliation)
		"roster_by_match": `SELECT mp.id, mp.match_id, mp.player_id, mp.slot, mp.team,
			mp.display_name, mp.hero_id, mp.kills, mp.deaths, mp.assists,
			p.steam_account_id
			FROM match_players mp
			JOIN players p ON p.id = mp.player_id
			WHERE mp.match_id = $1 ORDER BY mp.slot`,

		// Player identity merge: candidates sharing a known name, most
		// recently active first (tie-break policy for name collisions).
		"player_by_known_name": `SELECT id, known_names FROM players
			WHERE EXISTS (
				SELECT 1 FROM unnest(known_names) AS n WHERE lower(n) = lower($1)
			)
			ORDER BY updated_at DESC`,

		// Players
		"player_by_id": `SELECT id, known_names, steam_account_id, top_heroes,
			top_heroes_updated_at, profile_id, created_at, updated_at
			FROM players WHERE id = $1`,
		"players_list": `SELECT id, known_names, steam_account_id, top_heroes,
			top_heroes_updated_at, profile_id, created_at, updated_at
			FROM players ORDER BY created_at DESC`,

		// Profiles: identity-matcher name index source. Creation order
		// matters: when two profiles claim a name the newest one wins.
		"profile_name_index": `SELECT id, dota_names FROM profiles ORDER BY created_at ASC`,

		// Backfill candidate selection. Broad SQL cut; the precise
		// eligibility windows are applied in Go (internal/fetch).
		"backfill_harvest_candidates": `SELECT id, dota_match_id, parse_requested_at,
			parse_attempts, created_at FROM matches
			WHERE NOT opendota_fetched
			  AND dota_match_id IS NOT NULL
			  AND parse_requested_at IS NOT NULL
			ORDER BY parse_requested_at ASC`,
		"backfill_request_candidates": `SELECT id, dota_match_id, parse_requested_at,
			parse_attempts, created_at FROM matches
			WHERE NOT opendota_fetched
			  AND dota_match_id IS NOT NULL
			  AND parse_requested_at IS NULL
			ORDER BY created_at ASC`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
