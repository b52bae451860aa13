package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avelins/dotalog/internal/api/respond"
)

// heartbeatInterval keeps idle SSE connections from being reaped by
// intermediate proxies.
const heartbeatInterval = 30 * time.Second

// Events streams database change notifications as server-sent events.
// @Summary Subscribe to change events
// @Description Streams table change notifications (insert/update/delete on matches, players, tags, notes) as SSE. Each event's data is a JSON object with table, op, and id fields.
// @Tags events
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	events, cancel := h.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
