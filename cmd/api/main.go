// Command api is the Dotalog API server.
//
// Usage:
//
//	dotalog-api
//	API_PORT=8080 dotalog-api

// @title Dotalog API
// @version 1.0.0
// @description Match logging API for Dota 2 in-house groups: status-text parsing, cross-match player identities, OpenDota stat reconciliation, and player tags/notes.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Dotalog
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/avelins/dotalog/internal/api"
	"github.com/avelins/dotalog/internal/api/handler"
	"github.com/avelins/dotalog/internal/cache"
	"github.com/avelins/dotalog/internal/config"
	"github.com/avelins/dotalog/internal/db"
	"github.com/avelins/dotalog/internal/fetch"
	"github.com/avelins/dotalog/internal/listener"
	"github.com/avelins/dotalog/internal/opendota"

	_ "github.com/avelins/dotalog/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// One OpenDota client for the whole process: interactive fetches and the
	// backfill job share its rate limiter, so outbound calls never bunch up.
	od := opendota.NewClient(cfg.OpenDotaBaseURL, cfg.OpenDotaInterval, logger)

	// Start LISTEN/NOTIFY consumer feeding the SSE hub
	hub := listener.NewHub()
	go listener.Start(ctx, cfg.DatabaseURL, hub, logger)

	// Start the parse-data backfill ticker
	if cfg.BackfillEnabled {
		bfCfg := fetch.BackfillConfig{
			Interval:    cfg.BackfillInterval,
			BatchSize:   cfg.BackfillBatchSize,
			Cooldown:    cfg.BackfillCooldown,
			RequestLag:  cfg.BackfillRequestLag,
			Window:      cfg.BackfillWindow,
			MaxAttempts: cfg.BackfillMaxAttempts,
		}
		go fetch.StartBackfill(ctx, pool.Pool, od, bfCfg, logger)
		logger.Info("Backfill job started", "interval", cfg.BackfillInterval)
	} else {
		logger.Info("Backfill job disabled")
	}

	// Create router
	h := handler.New(pool.Pool, appCache, cfg, od, hub, logger)
	router := api.NewRouter(h, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /api/v1/events holds its response open
		// indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Dotalog API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
