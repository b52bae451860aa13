// Package listener provides a Postgres LISTEN/NOTIFY consumer that relays
// table-change events to connected UI clients. It holds a dedicated pgx
// connection (not from the pool) listening on the `table_changed` channel;
// schema triggers fire pg_notify on every write to the watched tables.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	channel          = "table_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
	subscriberBuffer = 16
)

// ChangeEvent is the JSON payload from pg_notify('table_changed', ...).
type ChangeEvent struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

// Hub fans change events out to subscribers (one per connected SSE client).
type Hub struct {
	mu   sync.Mutex
	subs map[chan ChangeEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan ChangeEvent]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the client goes away.
func (h *Hub) Subscribe() (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// publish delivers an event to every subscriber. Slow subscribers whose
// buffer is full miss the event; the UI refetches on reconnect anyway.
func (h *Hub) publish(event ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Start opens a dedicated connection and listens on the table_changed
// channel, publishing every event to the hub. Reconnects automatically on
// connection loss. Blocks until ctx is cancelled; call with `go`.
func Start(ctx context.Context, dbURL string, hub *Hub, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, hub, logger)
		if ctx.Err() != nil {
			logger.Info("change listener stopped (context cancelled)")
			return
		}

		logger.Error("change listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection
// drops or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, hub *Hub, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("change listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event ChangeEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("failed to parse change event",
				"payload", notification.Payload, "error", err)
			continue
		}

		hub.publish(event)
	}
}
