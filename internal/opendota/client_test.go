package opendota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	// Near-zero spacing; rate limiting has its own test.
	return NewClient(srv.URL, time.Microsecond, nil)
}

func TestMatch(t *testing.T) {
	body := `{"match_id":7654321,"duration":1800,"radiant_win":true,"players":[{"account_id":111,"player_slot":0,"hero_id":14,"kills":7,"deaths":2,"assists":11,"personaname":"alice"}]}`
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/matches/7654321", r.URL.Path)
		w.Write([]byte(body))
	})

	data, raw, err := c.Match(context.Background(), 7654321)

	assert.NoError(t, err)
	assert.Equal(t, int64(7654321), data.MatchID)
	assert.True(t, data.RadiantWin)
	assert.Len(t, data.Players, 1)
	assert.Equal(t, 14, data.Players[0].HeroID)
	assert.Equal(t, int64(111), *data.Players[0].AccountID)
	assert.Equal(t, body, string(raw), "raw body must be preserved verbatim")
}

func TestMatchServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, _, err := c.Match(context.Background(), 1)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestRequestParse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/request/7654321", r.URL.Path)
		w.Write([]byte(`{"job":{"jobId":424242}}`))
	})

	jobID, err := c.RequestParse(context.Background(), 7654321)

	assert.NoError(t, err)
	assert.Equal(t, int64(424242), jobID)
}

func TestRequestParseMissingJobID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := c.RequestParse(context.Background(), 1)

	assert.Error(t, err)
}

func TestParseJobPending(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "job still in flight", body: `{"id":424242,"type":"parse"}`, want: true},
		{name: "job consumed", body: `{}`, want: false},
		{name: "null body", body: `null`, want: false},
		{name: "empty body", body: ``, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			pending, err := c.ParseJobPending(context.Background(), 424242)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, pending)
		})
	}
}

func TestPlayerHeroesTurboFilter(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/players/111/heroes", r.URL.Path)
		assert.Equal(t, "23", r.URL.Query().Get("game_mode"))
		w.Write([]byte(`[{"hero_id":"14","games":30,"win":18}]`))
	})

	heroes, err := c.PlayerHeroes(context.Background(), 111, true)

	assert.NoError(t, err)
	assert.Len(t, heroes, 1)
	assert.Equal(t, "14", heroes[0].HeroID)
	assert.Equal(t, 30, heroes[0].Games)
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	var calls []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, time.Now())
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	const spacing = 50 * time.Millisecond
	c := NewClient(srv.URL, spacing, nil)

	for i := 0; i < 3; i++ {
		_, err := c.Heroes(context.Background())
		assert.NoError(t, err)
	}

	if assert.Len(t, calls, 3) {
		for i := 1; i < len(calls); i++ {
			gap := calls[i].Sub(calls[i-1])
			assert.GreaterOrEqual(t, gap, spacing-5*time.Millisecond,
				"calls %d and %d arrived %s apart", i-1, i, gap)
		}
	}
}
