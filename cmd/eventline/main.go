// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/evently/eventline/internal/audit"
	"github.com/evently/eventline/internal/auth"
	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/config"
	"github.com/evently/eventline/internal/handler"
	"github.com/evently/eventline/internal/handler/api"
	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/render"
	"github.com/evently/eventline/internal/scheduler"
	"github.com/evently/eventline/internal/session"
	"github.com/evently/eventline/internal/store"
	"github.com/evently/eventline/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Eventline - event listings site\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_SESSION_SECRET        Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_DB_PATH               SQLite database path (default: ./data/eventline.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_BASE_URL              Public origin, used for the OAuth callback (default: http://localhost:8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_GOOGLE_CLIENT_ID      Google OAuth client ID (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_GOOGLE_CLIENT_SECRET  Google OAuth client secret (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_REDIS_URL             Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EVENTLINE_DO_SEED               Seed sample events on first run (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("eventline %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the audit log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(audit.NewLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("audit log integration enabled", "min_level", "warn")

	// Seed default data
	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize the event cache (Redis with memory fallback)
	cacheBackend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
	})
	defer func() {
		if err := cacheBackend.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	eventCache := cache.NewEventCache(cacheBackend, store.New(db), time.Duration(cfg.CacheTTL)*time.Second)
	if err := eventCache.Warm(ctx); err != nil {
		slog.Warn("failed to warm event cache", "error", err)
	}

	// Initialize template renderer
	renderer, err := render.New(render.Config{
		TemplatesFS:    web.Templates(),
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Start the archiving scheduler
	sched := scheduler.New(db, eventCache, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))

	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	// CSRF protection for form routes (API routes are exempted)
	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	csrfMiddleware := middleware.CSRF(csrfConfig)

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection, cfg.GoogleOAuthEnabled())
	adminHandler := handler.NewAdminHandler(db, renderer, eventCache)
	frontendHandler := handler.NewFrontendHandler(db, renderer, eventCache)
	healthHandler := handler.NewHealthHandler(db)
	apiHandler := api.NewHandler(db, sessionManager, eventCache)

	// Public frontend routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalLoadUser(sessionManager, db))
		r.Get(handler.RouteRoot, frontendHandler.Home)
		r.Get(handler.RouteEvents, frontendHandler.Events)
		r.Get(handler.RouteEvents+handler.RouteParamSlug, frontendHandler.EventDetail)
	})

	// Auth routes (public, with CSRF and login rate limiting)
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteLogout, authHandler.Logout)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	// Google OAuth routes (only when credentials are configured)
	if cfg.GoogleOAuthEnabled() {
		provider := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL())
		oauthHandler := handler.NewOAuthHandler(db, provider, renderer, sessionManager, authHandler)
		r.Get("/auth/google", oauthHandler.GoogleStart)
		r.Get("/auth/google/callback", oauthHandler.GoogleCallback)
		slog.Info("Google sign-in enabled", "redirect_url", cfg.GoogleRedirectURL())
	}

	// Admin routes (protected with CSRF)
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Use(middleware.RequireAdmin())

		r.Get(handler.RouteRoot, adminHandler.Dashboard)
		r.Get(handler.RouteAdminEvents, adminHandler.EventsList)
		r.Get(handler.RouteAdminEvents+handler.RouteSuffixNew, adminHandler.EventNew)
		r.Post(handler.RouteAdminEvents, adminHandler.EventCreate)
		r.Get(handler.RouteAdminEvents+handler.RouteParamID, adminHandler.EventEdit)
		r.Post(handler.RouteAdminEvents+handler.RouteParamID, adminHandler.EventUpdate)
		r.Post(handler.RouteAdminEvents+handler.RouteParamID+"/delete", adminHandler.EventDelete)
		r.Get(handler.RouteAdminAudit, adminHandler.AuditList)
	})

	// JSON API routes (session-authenticated where needed, no CSRF)
	r.Route("/api/v1", func(r chi.Router) {
		apiRateLimiter := middleware.NewGlobalRateLimiter(100, 200)
		r.Use(apiRateLimiter.Middleware())

		r.Get("/status", apiHandler.Status)
		r.Get("/events", apiHandler.ListEvents)
		r.Get("/events/{slug}", apiHandler.GetEvent)
		r.Get("/me", apiHandler.Me)
	})

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Static assets
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// 404 Not Found handler
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		frontendHandler.NotFound(w, req)
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second, // Mitigates slowloris attacks
		MaxHeaderBytes:    1 << 20,          // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
