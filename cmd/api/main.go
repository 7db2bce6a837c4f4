package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/academyops/backoffice/internal/background"
	"github.com/academyops/backoffice/internal/config"
	"github.com/academyops/backoffice/internal/database"
	"github.com/academyops/backoffice/internal/gate"
	"github.com/academyops/backoffice/internal/handlers"
	middlewareCustom "github.com/academyops/backoffice/internal/middleware"
	"github.com/academyops/backoffice/internal/obs"
	"github.com/academyops/backoffice/internal/platform"
	"github.com/academyops/backoffice/internal/reconcile"
	"github.com/academyops/backoffice/internal/repositories"
	"github.com/academyops/backoffice/internal/routes"
	pkghttp "github.com/academyops/backoffice/pkg/http"
	pkglogger "github.com/academyops/backoffice/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	obs.Init()

	// Attempt ledger: in-memory by default, postgres when a durable lockout is
	// required across restarts.
	var attemptStore gate.AttemptStore
	var db *database.DB
	var cleanupManager *background.CleanupManager

	if cfg.Gate.AttemptStore == "postgres" {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		attemptRepo := repositories.NewAttemptRepository(db)
		attemptStore = attemptRepo

		// Anything older than window+block can never matter again; keep double
		// that as retention slack.
		retention := 2 * (cfg.Gate.AttemptWindow + cfg.Gate.BlockDuration)
		cleanupManager = background.NewCleanupManager(attemptRepo, logger, cfg.Gate.CleanupInterval, retention)
	} else {
		attemptStore = gate.NewMemoryAttemptStore()
	}

	// Access gate
	auditLogger := pkglogger.NewAuditLogger(logger)

	policy := gate.LockoutPolicy{
		MaxAttempts:   cfg.Gate.MaxAttempts,
		AttemptWindow: cfg.Gate.AttemptWindow,
		BlockDuration: cfg.Gate.BlockDuration,
	}
	guard := gate.NewLockoutGuard(attemptStore, policy, logger)
	timingDelay := gate.NewTimingDelay(cfg.Gate.DelayMin, cfg.Gate.DelayMax)
	tokenManager := gate.NewTokenManager(cfg.Gate.SessionSecret, cfg.Gate.SessionTTL)

	credentialValidator := gate.NewCredentialValidator(
		guard,
		timingDelay,
		tokenManager,
		gate.ValidatorConfig{
			AdminID:           cfg.Gate.AdminID,
			AdminPasswordHash: cfg.Gate.AdminPasswordHash,
			MaxInputLength:    cfg.Gate.MaxInputLength,
		},
		logger,
		auditLogger,
	)

	// Reconciler over the platform backend
	platformClient := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.APIToken, cfg.Platform.RequestTimeout, logger)
	mirror := reconcile.NewMirror(platformClient, logger)
	tracker := reconcile.NewTracker()
	committer := reconcile.NewCommitter(platformClient, tracker, mirror, cfg.Platform.AdminEmail, logger, auditLogger)

	// Warm the mirror. A failure here is not fatal: the backend may come up
	// later, and /admin/refresh refetches on demand.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mirror.RefreshAll(warmCtx); err != nil {
		logger.Warn("initial collection fetch failed", slog.Any("error", err))
	}
	if err := mirror.RefreshCatalog(warmCtx); err != nil {
		logger.Warn("initial catalog fetch failed", slog.Any("error", err))
	}
	warmCancel()

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(credentialValidator, tokenManager, ipConfig)
	paymentsHandler := handlers.NewPaymentsHandler(mirror, tracker, committer, logger)
	accessHandler := handlers.NewAccessHandler(platformClient, logger)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, paymentsHandler, accessHandler, tokenManager)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.HealthCheck(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	router.Method(http.MethodGet, "/metrics", obs.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task for the durable ledger
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	if cleanupManager != nil {
		go cleanupManager.Start(cleanupCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
