package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/match"
	"github.com/avelins/dotalog/internal/opendota"
)

// BackfillConfig bounds each backfill run. Each phase processes at most
// BatchSize matches per run so one run stays inside the OpenDota rate
// budget; the remaining backlog waits for the next tick.
type BackfillConfig struct {
	Interval    time.Duration // tick cadence for Start
	BatchSize   int           // per phase, per run
	Cooldown    time.Duration // parse request age before harvesting
	RequestLag  time.Duration // match age before first parse request
	Window      time.Duration // matches older than this are abandoned
	MaxAttempts int           // parse requests per match before giving up
}

// DefaultBackfillConfig returns production defaults.
func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{
		Interval:    10 * time.Minute,
		BatchSize:   5,
		Cooldown:    5 * time.Minute,
		RequestLag:  45 * time.Minute,
		Window:      48 * time.Hour,
		MaxAttempts: 5,
	}
}

// BackfillResult tracks the outcome of one backfill run.
type BackfillResult struct {
	HarvestCandidates int
	Reconciled        int
	Retried           int
	RequestCandidates int
	Requested         int
	Errors            []string
	Duration          time.Duration
}

// Summary returns a human-readable summary.
func (r *BackfillResult) Summary() string {
	return fmt.Sprintf(
		"harvest=%d reconciled=%d retried=%d request=%d requested=%d errors=%d dur=%s",
		r.HarvestCandidates, r.Reconciled, r.Retried,
		r.RequestCandidates, r.Requested, len(r.Errors),
		r.Duration.Round(time.Second))
}

// eligibleForHarvest decides whether a match is ready to have its parse
// results collected: request old enough for OpenDota to have finished,
// attempt budget not exhausted, and still inside the recency window.
func eligibleForHarvest(row match.BackfillRow, now time.Time, cfg BackfillConfig) bool {
	if row.ParseRequestedAt == nil {
		return false
	}
	if now.Sub(*row.ParseRequestedAt) < cfg.Cooldown {
		return false
	}
	if row.ParseAttempts >= cfg.MaxAttempts {
		return false
	}
	return now.Sub(row.CreatedAt) <= cfg.Window
}

// eligibleForRequest decides whether a match is due its first parse request:
// old enough for OpenDota's own ingestion lag to have passed, and still
// inside the recency window.
func eligibleForRequest(row match.BackfillRow, now time.Time, cfg BackfillConfig) bool {
	if row.ParseRequestedAt != nil {
		return false
	}
	age := now.Sub(row.CreatedAt)
	return age >= cfg.RequestLag && age <= cfg.Window
}

// store is the slice of match persistence the backfill phases use.
// poolStore adapts *pgxpool.Pool; tests substitute fakes.
type store interface {
	HarvestCandidates(ctx context.Context) ([]match.BackfillRow, error)
	RequestCandidates(ctx context.Context) ([]match.BackfillRow, error)
	StampParseRequested(ctx context.Context, id uuid.UUID) error
	RecordFetched(ctx context.Context, id uuid.UUID, raw []byte) error
	Reconcile(ctx context.Context, id uuid.UUID, players []opendota.Player) (updated, total int, err error)
}

type poolStore struct {
	pool *pgxpool.Pool
}

func (s *poolStore) HarvestCandidates(ctx context.Context) ([]match.BackfillRow, error) {
	return match.HarvestCandidates(ctx, s.pool)
}

func (s *poolStore) RequestCandidates(ctx context.Context) ([]match.BackfillRow, error) {
	return match.RequestCandidates(ctx, s.pool)
}

func (s *poolStore) StampParseRequested(ctx context.Context, id uuid.UUID) error {
	return match.StampParseRequested(ctx, s.pool, id)
}

func (s *poolStore) RecordFetched(ctx context.Context, id uuid.UUID, raw []byte) error {
	return match.RecordFetched(ctx, s.pool, id, raw)
}

func (s *poolStore) Reconcile(ctx context.Context, id uuid.UUID, players []opendota.Player) (int, int, error) {
	return match.Reconcile(ctx, s.pool, id, players)
}

type phase func(ctx context.Context, st store, provider Provider, cfg BackfillConfig, logger *slog.Logger, result *BackfillResult)

// Backfill runs one two-phase pass: harvest previously requested parses,
// then issue parse requests for matches that never had one. Per-match
// failures are logged and skipped; nothing aborts the run.
func Backfill(ctx context.Context, pool *pgxpool.Pool, provider Provider, cfg BackfillConfig, logger *slog.Logger) BackfillResult {
	return runPhases(ctx, &poolStore{pool}, provider, cfg, logger, runHarvestPhase, runRequestPhase)
}

// BackfillHarvest runs only the harvest phase.
func BackfillHarvest(ctx context.Context, pool *pgxpool.Pool, provider Provider, cfg BackfillConfig, logger *slog.Logger) BackfillResult {
	return runPhases(ctx, &poolStore{pool}, provider, cfg, logger, runHarvestPhase)
}

// BackfillRequest runs only the request phase.
func BackfillRequest(ctx context.Context, pool *pgxpool.Pool, provider Provider, cfg BackfillConfig, logger *slog.Logger) BackfillResult {
	return runPhases(ctx, &poolStore{pool}, provider, cfg, logger, runRequestPhase)
}

func runPhases(ctx context.Context, st store, provider Provider, cfg BackfillConfig, logger *slog.Logger, phases ...phase) BackfillResult {
	start := time.Now()
	var result BackfillResult

	for _, run := range phases {
		run(ctx, st, provider, cfg, logger, &result)
	}

	result.Duration = time.Since(start)
	if result.HarvestCandidates > 0 || result.RequestCandidates > 0 || len(result.Errors) > 0 {
		logger.Info("backfill run complete", "summary", result.Summary())
	}
	return result
}

func runHarvestPhase(ctx context.Context, st store, provider Provider, cfg BackfillConfig, logger *slog.Logger, result *BackfillResult) {
	rows, err := st.HarvestCandidates(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		logger.Error("harvest candidate query failed", "error", err)
		return
	}

	now := time.Now()
	taken := 0
	for _, row := range rows {
		if taken >= cfg.BatchSize {
			break
		}
		if !eligibleForHarvest(row, now, cfg) {
			continue
		}
		taken++
		result.HarvestCandidates++

		data, raw, err := provider.Match(ctx, row.DotaMatchID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
			logger.Warn("harvest fetch failed, skipping", "match_id", row.ID, "error", err)
			continue
		}

		if !match.HasRealHeroData(data.Players) {
			// Cooldown elapsed but the parse still has not landed: burn an
			// attempt, reset the cooldown clock, and ask again.
			if err := st.StampParseRequested(ctx, row.ID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
				continue
			}
			if _, err := provider.RequestParse(ctx, row.DotaMatchID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
				logger.Warn("re-request parse failed", "match_id", row.ID, "error", err)
				continue
			}
			result.Retried++
			logger.Info("parse not ready, re-requested",
				"match_id", row.ID, "attempts", row.ParseAttempts+1)
			continue
		}

		if err := st.RecordFetched(ctx, row.ID, raw); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
			continue
		}
		updated, total, err := st.Reconcile(ctx, row.ID, data.Players)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
			logger.Warn("reconcile failed", "match_id", row.ID, "error", err)
			continue
		}
		result.Reconciled++
		logger.Info("harvested match data",
			"match_id", row.ID, "dota_match_id", row.DotaMatchID,
			"updated", updated, "total", total)
	}
}

func runRequestPhase(ctx context.Context, st store, provider Provider, cfg BackfillConfig, logger *slog.Logger, result *BackfillResult) {
	rows, err := st.RequestCandidates(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		logger.Error("request candidate query failed", "error", err)
		return
	}

	now := time.Now()
	taken := 0
	for _, row := range rows {
		if taken >= cfg.BatchSize {
			break
		}
		if !eligibleForRequest(row, now, cfg) {
			continue
		}
		taken++
		result.RequestCandidates++

		jobID, err := provider.RequestParse(ctx, row.DotaMatchID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
			logger.Warn("parse request failed, skipping", "match_id", row.ID, "error", err)
			continue
		}
		if err := st.StampParseRequested(ctx, row.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("match %s: %v", row.ID, err))
			continue
		}
		result.Requested++
		logger.Info("parse requested",
			"match_id", row.ID, "dota_match_id", row.DotaMatchID, "job_id", jobID)
	}
}

// StartBackfill runs Backfill on a fixed cadence until ctx is cancelled.
// Intended to be called with `go` from the API server's main.
func StartBackfill(ctx context.Context, pool *pgxpool.Pool, provider Provider, cfg BackfillConfig, logger *slog.Logger) {
	logger.Info("backfill ticker started",
		"interval", cfg.Interval,
		"batch_size", cfg.BatchSize,
		"cooldown", cfg.Cooldown,
		"request_lag", cfg.RequestLag,
		"window", cfg.Window)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			Backfill(ctx, pool, provider, cfg, logger)
		case <-ctx.Done():
			logger.Info("backfill ticker stopped")
			return
		}
	}
}
