package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avelins/dotalog/internal/opendota"
)

// fakeProvider substitutes the OpenDota client in runner tests.
type fakeProvider struct {
	MatchFunc           func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error)
	RequestParseFunc    func(ctx context.Context, matchID int64) (int64, error)
	ParseJobPendingFunc func(ctx context.Context, jobID int64) (bool, error)

	matchCalls int
	pollCalls  int
}

func (f *fakeProvider) Match(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
	f.matchCalls++
	return f.MatchFunc(ctx, matchID)
}

func (f *fakeProvider) RequestParse(ctx context.Context, matchID int64) (int64, error) {
	return f.RequestParseFunc(ctx, matchID)
}

func (f *fakeProvider) ParseJobPending(ctx context.Context, jobID int64) (bool, error) {
	f.pollCalls++
	return f.ParseJobPendingFunc(ctx, jobID)
}

func newFake() *fakeProvider {
	return &fakeProvider{
		MatchFunc: func(ctx context.Context, matchID int64) (*opendota.MatchData, []byte, error) {
			return &opendota.MatchData{MatchID: matchID}, []byte(`{}`), nil
		},
		RequestParseFunc: func(ctx context.Context, matchID int64) (int64, error) {
			return 1001, nil
		},
		ParseJobPendingFunc: func(ctx context.Context, jobID int64) (bool, error) {
			return false, nil
		},
	}
}

func TestFetchParsedSuccessAfterPolls(t *testing.T) {
	fake := newFake()
	pending := 3
	fake.ParseJobPendingFunc = func(ctx context.Context, jobID int64) (bool, error) {
		assert.Equal(t, int64(1001), jobID)
		pending--
		return pending > 0, nil
	}
	runner := NewRunner(fake, time.Millisecond, 10, nil)

	data, raw, err := runner.FetchParsed(context.Background(), 7654321, nil)

	assert.NoError(t, err)
	assert.Equal(t, int64(7654321), data.MatchID)
	assert.Equal(t, []byte(`{}`), raw)
	assert.Equal(t, 3, fake.pollCalls)
	assert.Equal(t, 1, fake.matchCalls)
}

func TestFetchParsedHookRunsBeforePolling(t *testing.T) {
	fake := newFake()
	var hookJob int64
	fake.ParseJobPendingFunc = func(ctx context.Context, jobID int64) (bool, error) {
		assert.Equal(t, int64(1001), hookJob, "request trail must be laid before the first poll")
		return false, nil
	}
	runner := NewRunner(fake, time.Millisecond, 10, nil)

	_, _, err := runner.FetchParsed(context.Background(), 1, func(jobID int64) {
		hookJob = jobID
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1001), hookJob)
	assert.Equal(t, 1, fake.pollCalls)
}

func TestFetchParsedPollTimeout(t *testing.T) {
	fake := newFake()
	fake.ParseJobPendingFunc = func(ctx context.Context, jobID int64) (bool, error) {
		return true, nil
	}
	runner := NewRunner(fake, time.Millisecond, 4, nil)

	_, _, err := runner.FetchParsed(context.Background(), 1, nil)

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 4, fake.pollCalls)
	assert.Equal(t, 0, fake.matchCalls, "match must not be fetched after a timeout")
}

func TestFetchParsedRequestError(t *testing.T) {
	fake := newFake()
	fake.RequestParseFunc = func(ctx context.Context, matchID int64) (int64, error) {
		return 0, errors.New("opendota /request/1 returned 500")
	}
	runner := NewRunner(fake, time.Millisecond, 4, nil)

	_, _, err := runner.FetchParsed(context.Background(), 1, nil)

	assert.Error(t, err)
	assert.Equal(t, 0, fake.pollCalls)
}

func TestFetchParsedCancelledMidPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := newFake()
	fake.ParseJobPendingFunc = func(ctx context.Context, jobID int64) (bool, error) {
		cancel() // cancel while the job is still pending
		return true, nil
	}
	runner := NewRunner(fake, time.Minute, 10, nil)

	_, _, err := runner.FetchParsed(ctx, 1, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.pollCalls)
	assert.Equal(t, 0, fake.matchCalls)
}

func TestFetchParsedPollError(t *testing.T) {
	fake := newFake()
	fake.ParseJobPendingFunc = func(ctx context.Context, jobID int64) (bool, error) {
		return false, errors.New("connection reset")
	}
	runner := NewRunner(fake, time.Millisecond, 10, nil)

	_, _, err := runner.FetchParsed(context.Background(), 1, nil)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 0, fake.matchCalls)
}
