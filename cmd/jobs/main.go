// Command jobs is the Dotalog maintenance CLI.
//
// Usage:
//
//	dotalog-jobs backfill run
//	dotalog-jobs backfill harvest --batch 10
//	dotalog-jobs backfill request
//	dotalog-jobs fetch --match 8b5f... --request-parse
//	dotalog-jobs fetch --dota-match 7654321
//	dotalog-jobs heroes --player 3c2a...
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/avelins/dotalog/internal/config"
	"github.com/avelins/dotalog/internal/db"
	"github.com/avelins/dotalog/internal/fetch"
	"github.com/avelins/dotalog/internal/match"
	"github.com/avelins/dotalog/internal/opendota"
	"github.com/avelins/dotalog/internal/player"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "dotalog-jobs",
		Short: "Dotalog maintenance CLI",
	}

	root.AddCommand(backfillCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(heroesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// backfill command
// --------------------------------------------------------------------------

// backfillRun is the shape shared by fetch.Backfill and its single-phase
// variants.
type backfillRun func(context.Context, *pgxpool.Pool, fetch.Provider, fetch.BackfillConfig, *slog.Logger) fetch.BackfillResult

func backfillCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Operate the parse-data backfill by hand",
	}
	cmd.PersistentFlags().IntVar(&batchSize, "batch", 5, "Matches per phase")

	phase := func(use, short string, run backfillRun) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runJob(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
					od := opendota.NewClient(cfg.OpenDotaBaseURL, cfg.OpenDotaInterval, logger)
					bfCfg := fetch.BackfillConfig{
						Interval:    cfg.BackfillInterval,
						BatchSize:   batchSize,
						Cooldown:    cfg.BackfillCooldown,
						RequestLag:  cfg.BackfillRequestLag,
						Window:      cfg.BackfillWindow,
						MaxAttempts: cfg.BackfillMaxAttempts,
					}
					start := time.Now()
					result := run(ctx, pool.Pool, od, bfCfg, logger)
					logger.Info("Backfill finished",
						"duration", time.Since(start).Round(time.Second),
						"summary", result.Summary())
					return nil
				})
			},
		}
	}

	cmd.AddCommand(
		phase("run", "Run one two-phase pass (harvest, then request)", fetch.Backfill),
		phase("harvest", "Collect parse results for previously requested matches", fetch.BackfillHarvest),
		phase("request", "Issue first parse requests for unparsed matches", fetch.BackfillRequest),
	)
	return cmd
}

// --------------------------------------------------------------------------
// fetch command
// --------------------------------------------------------------------------

func fetchCmd() *cobra.Command {
	var matchID string
	var dotaMatchID int64
	var requestParse bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and reconcile OpenDota data for one match",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (matchID == "") == (dotaMatchID == 0) {
				return fmt.Errorf("exactly one of --match or --dota-match is required")
			}
			var id uuid.UUID
			if matchID != "" {
				var err error
				if id, err = uuid.Parse(matchID); err != nil {
					return fmt.Errorf("--match must be a valid UUID: %w", err)
				}
			}
			return runJob(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if matchID == "" {
					m, err := match.GetByDotaMatchID(ctx, pool.Pool, dotaMatchID)
					if err != nil {
						return fmt.Errorf("look up match by dota match id %d: %w", dotaMatchID, err)
					}
					id = m.ID
				}

				od := opendota.NewClient(cfg.OpenDotaBaseURL, cfg.OpenDotaInterval, logger)
				runner := fetch.NewRunner(od, cfg.PollInterval, cfg.PollMaxAttempts, logger)

				start := time.Now()
				updated, total, err := runner.FetchAndReconcile(ctx, pool.Pool, id, requestParse)
				if err != nil {
					return err
				}
				logger.Info("Fetch finished",
					"match_id", id,
					"rows_updated", updated,
					"roster_size", total,
					"duration", time.Since(start).Round(time.Second))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "Match UUID")
	cmd.Flags().Int64Var(&dotaMatchID, "dota-match", 0, "Dota match id (alternative to --match)")
	cmd.Flags().BoolVar(&requestParse, "request-parse", false, "Request a replay parse and poll it before fetching")
	return cmd
}

// --------------------------------------------------------------------------
// heroes command
// --------------------------------------------------------------------------

func heroesCmd() *cobra.Command {
	var playerID string
	cmd := &cobra.Command{
		Use:   "heroes",
		Short: "Refresh a player's top heroes from OpenDota",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(playerID)
			if err != nil {
				return fmt.Errorf("--player must be a valid UUID: %w", err)
			}
			return runJob(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				od := opendota.NewClient(cfg.OpenDotaBaseURL, cfg.OpenDotaInterval, logger)
				heroes, err := player.RefreshTopHeroes(ctx, pool.Pool, od, id)
				if err != nil {
					return err
				}
				logger.Info("Top heroes refreshed", "player_id", id, "heroes", len(heroes))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&playerID, "player", "", "Player UUID (required)")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runJob handles config loading, DB connection, and context cancellation.
func runJob(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
