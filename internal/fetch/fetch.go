// Package fetch coordinates with OpenDota's asynchronous replay-parsing
// pipeline: request a parse, poll the job until it resolves, pull the match
// blob, and reconcile it onto the logged roster. The interactive runner
// serves a waiting user; the backfill job does the same work on a schedule
// for matches nobody is watching.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/match"
	"github.com/avelins/dotalog/internal/opendota"
)

// Provider is the slice of the OpenDota client this package uses.
// *opendota.Client satisfies it; tests substitute fakes.
type Provider interface {
	Match(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error)
	RequestParse(ctx context.Context, matchID int64) (int64, error)
	ParseJobPending(ctx context.Context, jobID int64) (bool, error)
}

var (
	// ErrPollTimeout means the parse job did not resolve within the
	// attempt budget. The match is untouched; the user can retry, and the
	// backfill job will pick it up regardless.
	ErrPollTimeout = errors.New("parse job did not complete in time")

	// ErrNoDotaMatchID means the logged match has no Dota match id to
	// fetch against (the paste carried no Lobby MatchID line).
	ErrNoDotaMatchID = errors.New("match has no dota match id")
)

// Runner drives the interactive request-parse → poll → fetch sequence.
type Runner struct {
	Provider        Provider
	PollInterval    time.Duration
	MaxPollAttempts int
	Logger          *slog.Logger
}

// NewRunner creates a Runner with the given poll budget.
func NewRunner(provider Provider, pollInterval time.Duration, maxAttempts int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Provider:        provider,
		PollInterval:    pollInterval,
		MaxPollAttempts: maxAttempts,
		Logger:          logger,
	}
}

// FetchParsed runs the full sequence for one Dota match id and returns the
// parsed blob. onRequested, when non-nil, runs right after the parse request
// is accepted and before polling starts; callers use it to persist the
// request trail so a poll timeout still leaves its mark. Cancelling ctx
// aborts cleanly at the next wait or call boundary with ctx.Err().
func (r *Runner) FetchParsed(ctx context.Context, dotaMatchID int64, onRequested func(jobID int64)) (*opendota.MatchData, []byte, error) {
	jobID, err := r.Provider.RequestParse(ctx, dotaMatchID)
	if err != nil {
		return nil, nil, fmt.Errorf("request parse: %w", err)
	}
	if onRequested != nil {
		onRequested(jobID)
	}
	r.Logger.Info("parse requested", "dota_match_id", dotaMatchID, "job_id", jobID)

	if err := r.poll(ctx, jobID); err != nil {
		return nil, nil, err
	}

	data, raw, err := r.Provider.Match(ctx, dotaMatchID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch match data: %w", err)
	}
	return data, raw, nil
}

// poll waits for a parse job to resolve, checking cancellation before and
// after every wait and every call.
func (r *Runner) poll(ctx context.Context, jobID int64) error {
	for attempt := 1; attempt <= r.MaxPollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pending, err := r.Provider.ParseJobPending(ctx, jobID)
		if err != nil {
			return fmt.Errorf("poll parse job: %w", err)
		}
		if !pending {
			return nil
		}

		select {
		case <-time.After(r.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ErrPollTimeout
}

// FetchAndReconcile serves the interactive "fetch from OpenDota" action for
// a logged match. requestParse selects the full state machine; without it
// the blob is fetched directly (re-fetch of an already parsed match).
// On success the blob is stored on the match and reconciled onto the roster.
func (r *Runner) FetchAndReconcile(ctx context.Context, pool *pgxpool.Pool, matchID uuid.UUID, requestParse bool) (updated, total int, err error) {
	m, err := match.Get(ctx, pool, matchID)
	if err != nil {
		return 0, 0, err
	}
	if m.DotaMatchID == nil {
		return 0, 0, ErrNoDotaMatchID
	}

	var (
		data *opendota.MatchData
		raw  []byte
	)
	if requestParse {
		// Leave the request trail even if polling times out or the user
		// cancels: the backfill job's harvest phase keys off it.
		data, raw, err = r.FetchParsed(ctx, *m.DotaMatchID, func(int64) {
			if err := match.StampParseRequested(ctx, pool, matchID); err != nil {
				r.Logger.Warn("failed to stamp parse request", "match_id", matchID, "error", err)
			}
		})
		if err != nil {
			return 0, 0, err
		}
	} else {
		data, raw, err = r.Provider.Match(ctx, *m.DotaMatchID)
		if err != nil {
			return 0, 0, err
		}
	}

	if err := match.RecordFetched(ctx, pool, matchID, raw); err != nil {
		return 0, 0, err
	}
	return match.Reconcile(ctx, pool, matchID, data.Players)
}
