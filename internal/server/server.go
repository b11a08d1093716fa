// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, services,
// handlers, middleware, and routes, and owns the server lifecycle:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and a logger, then calls New, which creates:
//
//	store (sqlite | mongo | postgres) ─┐
//	TokenService, PasswordService ─────┼─> AuthService     ─> AuthHandler
//	validator, metrics ────────────────┼─> BookmarkService ─> BookmarkHandler
//	github.Client ─────────────────────┴─> RepoService     ─> RepoHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/repo-bookmarks/internal/auth"
	"github.com/sakif/repo-bookmarks/internal/config"
	"github.com/sakif/repo-bookmarks/internal/github"
	"github.com/sakif/repo-bookmarks/internal/handler"
	"github.com/sakif/repo-bookmarks/internal/metrics"
	"github.com/sakif/repo-bookmarks/internal/middleware"
	"github.com/sakif/repo-bookmarks/internal/repository"
	"github.com/sakif/repo-bookmarks/internal/repository/mongo"
	"github.com/sakif/repo-bookmarks/internal/repository/postgres"
	sqliteRepo "github.com/sakif/repo-bookmarks/internal/repository/sqlite"
	"github.com/sakif/repo-bookmarks/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection. Start closes it after the HTTP
// server has drained; callers that never Start (tests) call Close.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   repository.Store
	metrics *metrics.Prometheus
}

// New opens the store selected by cfg.DatabaseURL and wires every layer
// on top of it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.NewPrometheus(),
	}

	if err := s.setupRoutes(); err != nil {
		store.Close() // Clean up the store if wiring fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the backend from the DATABASE_URL scheme.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreKind() {
	case config.StoreMongo:
		db, err := mongo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StorePostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		// os.MkdirAll creates the data directory if needed (like `mkdir -p`).
		if cfg.DatabaseURL != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                          → store liveness
// GET    /metrics                         → Prometheus exposition
// POST   /api/auth/signup                 → create account   (rate limited)
// POST   /api/auth/login                  → issue token      (rate limited)
// GET    /api/auth/me                     → current user     (bearer)
// PUT    /api/auth/password               → change password  (bearer)
// DELETE /api/auth/account                → delete account   (bearer)
// GET    /api/search?query=               → GitHub search proxy
// GET    /api/repos/{owner}/{repo}        → repository detail
// GET    /api/repos/{owner}/{repo}/readme → rendered README
// GET    /api/bookmarks                   → list own bookmarks (bearer)
// POST   /api/bookmarks                   → add bookmark       (bearer)
// DELETE /api/bookmarks/{id}              → remove bookmark    (bearer)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request, read by Logger
// 2. RealIP: client IP from proxy headers, read by the rate limiter
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: answers preflights before any handler runs
// 6. Metrics: records status and latency per route pattern
// 7. Timeout: bounds store and upstream calls through the request context
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins()...)))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))

	// === Auth primitives ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.BcryptCost)

	// === GitHub proxy ===
	gh, err := github.NewClient(github.Config{
		BaseURL: cfg.GitHubAPIURL,
		Token:   cfg.GitHubToken,
		Timeout: cfg.GitHubTimeout,
		Metrics: s.metrics,
		Logger:  s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	// === Services & handlers ===
	// The store satisfies both repository interfaces; each service only
	// sees the one it needs.
	validate := service.NewValidator()
	authService := service.NewAuthService(s.store, s.store, tokens, passwords, validate, s.metrics, s.logger)
	bookmarkService := service.NewBookmarkService(s.store, validate, s.metrics, s.logger)
	repoService := service.NewRepoService(gh, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	bookmarkHandler := handler.NewBookmarkHandler(bookmarkService, s.logger)
	repoHandler := handler.NewRepoHandler(repoService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	// === Operational routes ===
	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	// === API routes ===
	authLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		RPS:   cfg.AuthRateLimitRPS,
		Burst: cfg.AuthRateLimitBurst,
	}, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.With(authLimit).Post("/auth/signup", authHandler.HandleSignup)
		r.With(authLimit).Post("/auth/login", authHandler.HandleLogin)

		r.Get("/search", repoHandler.HandleSearch)
		r.Get("/repos/{owner}/{repo}", repoHandler.HandleRepo)
		r.Get("/repos/{owner}/{repo}/readme", repoHandler.HandleReadme)

		// Everything in this group needs a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/me", authHandler.HandleMe)
			r.Put("/auth/password", authHandler.HandleChangePassword)
			r.Delete("/auth/account", authHandler.HandleDeleteAccount)

			r.Get("/bookmarks", bookmarkHandler.HandleList)
			r.Post("/bookmarks", bookmarkHandler.HandleAdd)
			r.Delete("/bookmarks/{id}", bookmarkHandler.HandleRemove)
		})
	})

	return nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (SHUTDOWN_TIMEOUT)
// 3. Close the store (flushes the SQLite WAL, drains driver pools)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.AppEnv),
			slog.String("store", string(s.config.StoreKind())),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
