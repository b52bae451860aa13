// Package handler provides HTTP handlers for all API endpoints.
// Handlers call the store packages directly via pgxpool — no service layer.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/cache"
	"github.com/avelins/dotalog/internal/config"
	"github.com/avelins/dotalog/internal/fetch"
	"github.com/avelins/dotalog/internal/listener"
	"github.com/avelins/dotalog/internal/opendota"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool   *pgxpool.Pool
	cache  *cache.Cache
	cfg    *config.Config
	od     *opendota.Client
	runner *fetch.Runner
	hub    *listener.Hub
	logger *slog.Logger
}

// New creates a Handler with shared dependencies. The OpenDota client (and
// its rate limiter) is shared with the backfill job so all outbound calls
// serialize through one limiter.
func New(pool *pgxpool.Pool, c *cache.Cache, cfg *config.Config, od *opendota.Client, hub *listener.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		pool:   pool,
		cache:  c,
		cfg:    cfg,
		od:     od,
		runner: fetch.NewRunner(od, cfg.PollInterval, cfg.PollMaxAttempts, logger),
		hub:    hub,
		logger: logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Dotalog API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
