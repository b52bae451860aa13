// Package opendota is the HTTP client for the OpenDota API.
//
// Every outbound call — match fetch, parse request, job poll, hero stats —
// goes through one shared rate limiter enforcing a minimum spacing between
// requests, because OpenDota throttles by requests per minute. The limiter
// is owned by the Client and injected everywhere the Client goes, so all
// callers in one process serialize through it.
package opendota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is the shared HTTP client for all OpenDota endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an OpenDota client. minInterval is the minimum spacing
// between consecutive outbound calls (1.1s keeps the free tier happy).
func NewClient(baseURL string, minInterval time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		logger:     logger,
	}
}

// Match fetches the full match blob. Returns the decoded data plus the raw
// body so callers can persist the blob without a lossy re-encode.
func (c *Client) Match(ctx context.Context, matchID int64) (*MatchData, []byte, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/matches/%d", matchID))
	if err != nil {
		return nil, nil, err
	}
	var data MatchData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, nil, fmt.Errorf("decode match %d: %w", matchID, err)
	}
	return &data, body, nil
}

// RequestParse asks OpenDota to parse the replay for a match and returns the
// job handle to poll.
func (c *Client) RequestParse(ctx context.Context, matchID int64) (int64, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/request/%d", matchID))
	if err != nil {
		return 0, err
	}
	var resp requestParseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode parse request for match %d: %w", matchID, err)
	}
	if resp.Job.JobID == 0 {
		return 0, fmt.Errorf("parse request for match %d returned no job id", matchID)
	}
	return resp.Job.JobID, nil
}

// ParseJobPending reports whether a parse job is still in flight. OpenDota
// echoes the job back while it is queued or running; once it completes the
// response no longer carries the job id.
func (c *Client) ParseJobPending(ctx context.Context, jobID int64) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/request/%d", jobID))
	if err != nil {
		return false, err
	}
	var status parseJobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		// Non-object bodies (null, empty) mean the job is gone, i.e. done.
		return false, nil
	}
	return status.ID != nil, nil
}

// PlayerHeroes fetches per-hero game counts for an account. turboOnly limits
// the stats to Turbo games (game_mode=23), which is what the group plays.
func (c *Client) PlayerHeroes(ctx context.Context, accountID int64, turboOnly bool) ([]PlayerHero, error) {
	path := fmt.Sprintf("/players/%d/heroes", accountID)
	if turboOnly {
		path += "?game_mode=23"
	}
	body, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	var heroes []PlayerHero
	if err := json.Unmarshal(body, &heroes); err != nil {
		return nil, fmt.Errorf("decode player heroes for %d: %w", accountID, err)
	}
	return heroes, nil
}

// Heroes fetches the hero catalog (id to name mapping).
func (c *Client) Heroes(ctx context.Context) ([]Hero, error) {
	body, err := c.do(ctx, http.MethodGet, "/heroes")
	if err != nil {
		return nil, err
	}
	var heroes []Hero
	if err := json.Unmarshal(body, &heroes); err != nil {
		return nil, fmt.Errorf("decode heroes: %w", err)
	}
	return heroes, nil
}

// do performs a rate-limited request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("opendota %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
