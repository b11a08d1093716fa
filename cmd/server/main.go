// Package main is the entry point for the repo-bookmarks API server.
//
// MAIN PACKAGE IN GO:
// main should stay minimal. Its job is to:
// 1. Read configuration (internal/config, from env vars)
// 2. Create the logger
// 3. Start the application (internal/server)
//
// All actual logic lives in imported packages, which keeps them testable.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/repo-bookmarks/internal/config"
	"github.com/sakif/repo-bookmarks/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; fall back to a plain one so the error is still structured.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text for humans in a terminal, JSON for log shippers.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogJSON() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(h).With(slog.String("service", "repo-bookmarks"))
	slog.SetDefault(logger)

	if cfg.GitHubToken == "" {
		logger.Warn("GITHUB_TOKEN not set, GitHub requests are anonymous and heavily rate limited")
	}

	// === 3. CREATE AND START THE SERVER ===
	// Connecting to a remote store gets a bounded window.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	srv, err := server.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
