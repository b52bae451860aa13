package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/avelins/dotalog/internal/match"
	"github.com/avelins/dotalog/internal/opendota"
)

func backfillRow(createdAgo time.Duration, requestedAgo *time.Duration, attempts int, now time.Time) match.BackfillRow {
	row := match.BackfillRow{
		ID:            uuid.New(),
		DotaMatchID:   7654321,
		ParseAttempts: attempts,
		CreatedAt:     now.Add(-createdAgo),
	}
	if requestedAgo != nil {
		t := now.Add(-*requestedAgo)
		row.ParseRequestedAt = &t
	}
	return row
}

func durptr(d time.Duration) *time.Duration { return &d }

func TestEligibleForHarvest(t *testing.T) {
	now := time.Now()
	cfg := DefaultBackfillConfig()

	tests := []struct {
		name string
		row  match.BackfillRow
		want bool
	}{
		{
			name: "cooldown elapsed, attempts left, recent",
			row:  backfillRow(time.Hour, durptr(10*time.Minute), 2, now),
			want: true,
		},
		{
			name: "never requested",
			row:  backfillRow(time.Hour, nil, 0, now),
			want: false,
		},
		{
			name: "cooldown not elapsed",
			row:  backfillRow(time.Hour, durptr(time.Minute), 1, now),
			want: false,
		},
		{
			name: "attempt budget exhausted",
			row:  backfillRow(time.Hour, durptr(10*time.Minute), 5, now),
			want: false,
		},
		{
			name: "outside the recency window",
			row:  backfillRow(49*time.Hour, durptr(10*time.Minute), 1, now),
			want: false,
		},
		{
			name: "exactly at the attempt limit minus one",
			row:  backfillRow(time.Hour, durptr(10*time.Minute), 4, now),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eligibleForHarvest(tt.row, now, cfg))
		})
	}
}

func TestEligibleForRequest(t *testing.T) {
	now := time.Now()
	cfg := DefaultBackfillConfig()

	tests := []struct {
		name string
		row  match.BackfillRow
		want bool
	}{
		{
			name: "past the ingestion lag, recent",
			row:  backfillRow(time.Hour, nil, 0, now),
			want: true,
		},
		{
			name: "too fresh",
			row:  backfillRow(30*time.Minute, nil, 0, now),
			want: false,
		},
		{
			name: "already requested",
			row:  backfillRow(time.Hour, durptr(10*time.Minute), 1, now),
			want: false,
		},
		{
			name: "outside the recency window",
			row:  backfillRow(49*time.Hour, nil, 0, now),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eligibleForRequest(tt.row, now, cfg))
		})
	}
}

// fakeStore substitutes match persistence in phase tests. calls records the
// write sequence so ordering can be asserted.
type fakeStore struct {
	harvestRows []match.BackfillRow
	requestRows []match.BackfillRow
	stampErr    error

	stamps     []uuid.UUID
	recorded   []uuid.UUID
	reconciled []uuid.UUID
	calls      []string
}

func (s *fakeStore) HarvestCandidates(ctx context.Context) ([]match.BackfillRow, error) {
	return s.harvestRows, nil
}

func (s *fakeStore) RequestCandidates(ctx context.Context) ([]match.BackfillRow, error) {
	return s.requestRows, nil
}

func (s *fakeStore) StampParseRequested(ctx context.Context, id uuid.UUID) error {
	s.calls = append(s.calls, "stamp")
	if s.stampErr != nil {
		return s.stampErr
	}
	s.stamps = append(s.stamps, id)
	return nil
}

func (s *fakeStore) RecordFetched(ctx context.Context, id uuid.UUID, raw []byte) error {
	s.calls = append(s.calls, "record")
	s.recorded = append(s.recorded, id)
	return nil
}

func (s *fakeStore) Reconcile(ctx context.Context, id uuid.UUID, players []opendota.Player) (int, int, error) {
	s.calls = append(s.calls, "reconcile")
	s.reconciled = append(s.reconciled, id)
	return len(players), len(players), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func placeholderBlob(matchID int64) *opendota.MatchData {
	return &opendota.MatchData{MatchID: matchID, Players: []opendota.Player{
		{PlayerSlot: 0}, {PlayerSlot: 128},
	}}
}

func parsedBlob(matchID int64) *opendota.MatchData {
	return &opendota.MatchData{MatchID: matchID, Players: []opendota.Player{
		{PlayerSlot: 0, HeroID: 14}, {PlayerSlot: 128, HeroID: 8},
	}}
}

func TestHarvestPhaseRetriesPlaceholderData(t *testing.T) {
	now := time.Now()
	st := &fakeStore{harvestRows: []match.BackfillRow{
		backfillRow(time.Hour, durptr(10*time.Minute), 2, now),
	}}
	fake := newFake()
	fake.MatchFunc = func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
		return placeholderBlob(matchID), []byte(`{}`), nil
	}
	fake.RequestParseFunc = func(ctx context.Context, matchID int64) (int64, error) {
		st.calls = append(st.calls, "request")
		return 1001, nil
	}

	result := runPhases(context.Background(), st, fake, DefaultBackfillConfig(), discardLogger(), runHarvestPhase)

	assert.Equal(t, 1, result.HarvestCandidates)
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 0, result.Reconciled)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []uuid.UUID{st.harvestRows[0].ID}, st.stamps)
	// The attempt is stamped before the re-request goes out: if the request
	// fails anyway, the cooldown clock has still been reset.
	assert.Equal(t, []string{"stamp", "request"}, st.calls)
	assert.Empty(t, st.recorded)
	assert.Empty(t, st.reconciled)
}

func TestHarvestPhaseStampFailureSkipsReRequest(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		harvestRows: []match.BackfillRow{backfillRow(time.Hour, durptr(10*time.Minute), 2, now)},
		stampErr:    errors.New("connection reset"),
	}
	fake := newFake()
	fake.MatchFunc = func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
		return placeholderBlob(matchID), []byte(`{}`), nil
	}
	fake.RequestParseFunc = func(ctx context.Context, matchID int64) (int64, error) {
		st.calls = append(st.calls, "request")
		return 1001, nil
	}

	result := runPhases(context.Background(), st, fake, DefaultBackfillConfig(), discardLogger(), runHarvestPhase)

	assert.Equal(t, 0, result.Retried)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, []string{"stamp"}, st.calls, "no re-request without a recorded attempt")
}

func TestHarvestPhaseReRequestFailure(t *testing.T) {
	now := time.Now()
	st := &fakeStore{harvestRows: []match.BackfillRow{
		backfillRow(time.Hour, durptr(10*time.Minute), 2, now),
	}}
	fake := newFake()
	fake.MatchFunc = func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
		return placeholderBlob(matchID), []byte(`{}`), nil
	}
	fake.RequestParseFunc = func(ctx context.Context, matchID int64) (int64, error) {
		st.calls = append(st.calls, "request")
		return 0, errors.New("opendota /request/1 returned 500")
	}

	result := runPhases(context.Background(), st, fake, DefaultBackfillConfig(), discardLogger(), runHarvestPhase)

	assert.Equal(t, 0, result.Retried)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, []string{"stamp", "request"}, st.calls)
}

func TestHarvestPhaseReconcilesParsedData(t *testing.T) {
	now := time.Now()
	st := &fakeStore{harvestRows: []match.BackfillRow{
		backfillRow(time.Hour, durptr(10*time.Minute), 2, now),
	}}
	fake := newFake()
	fake.MatchFunc = func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
		return parsedBlob(matchID), []byte(`{"ok":true}`), nil
	}

	result := runPhases(context.Background(), st, fake, DefaultBackfillConfig(), discardLogger(), runHarvestPhase)

	assert.Equal(t, 1, result.Reconciled)
	assert.Equal(t, 0, result.Retried)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"record", "reconcile"}, st.calls)
	assert.Equal(t, []uuid.UUID{st.harvestRows[0].ID}, st.reconciled)
}

func TestHarvestPhaseHonorsBatchSize(t *testing.T) {
	now := time.Now()
	st := &fakeStore{}
	for i := 0; i < 7; i++ {
		st.harvestRows = append(st.harvestRows, backfillRow(time.Hour, durptr(10*time.Minute), 0, now))
	}
	fake := newFake()
	fake.MatchFunc = func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
		return parsedBlob(matchID), []byte(`{}`), nil
	}

	result := runPhases(context.Background(), st, fake, DefaultBackfillConfig(), discardLogger(), runHarvestPhase)

	assert.Equal(t, 5, result.HarvestCandidates)
	assert.Equal(t, 5, result.Reconciled)
}

func TestRequestPhaseStampsAfterRequest(t *testing.T) {
	now := time.Now()
	st := &fakeStore{requestRows: []match.BackfillRow{
		backfillRow(time.Hour, nil, 0, now),
	}}
	fake := newFake()
	fake.RequestParseFunc = func(ctx context.Context, matchID int64) (int64, error) {
		st.calls = append(st.calls, "request")
		return 1001, nil
	}

	result := runPhases(context.Background(), st, fake, DefaultBackfillConfig(), discardLogger(), runRequestPhase)

	assert.Equal(t, 1, result.RequestCandidates)
	assert.Equal(t, 1, result.Requested)
	assert.Empty(t, result.Errors)
	// First parse requests only stamp once OpenDota has accepted the job.
	assert.Equal(t, []string{"request", "stamp"}, st.calls)
	assert.Equal(t, []uuid.UUID{st.requestRows[0].ID}, st.stamps)
}

func TestBackfillResultSummary(t *testing.T) {
	r := BackfillResult{
		HarvestCandidates: 3,
		Reconciled:        2,
		Retried:           1,
		RequestCandidates: 4,
		Requested:         4,
		Duration:          90 * time.Second,
	}
	assert.Equal(t, "harvest=3 reconciled=2 retried=1 request=4 requested=4 errors=0 dur=1m30s", r.Summary())
}
