// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Alpha Source HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the session store.
//  7. Wire health handlers.
//  8. Wire domain services and handlers.
//  9. Start HTTP server.
//  10. Graceful shutdown on SIGTERM or SIGINT.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/alphasource/internal/api"
	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/platform/config"
	"github.com/taibuivan/alphasource/internal/platform/constants"
	"github.com/taibuivan/alphasource/internal/platform/mailer"
	"github.com/taibuivan/alphasource/internal/platform/middleware"
	"github.com/taibuivan/alphasource/internal/platform/migration"
	pgstore "github.com/taibuivan/alphasource/internal/platform/postgres"
	redisstore "github.com/taibuivan/alphasource/internal/platform/redis"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/system/settings"
	"github.com/taibuivan/alphasource/internal/users/account"
	"github.com/taibuivan/alphasource/internal/users/auth"
	"github.com/taibuivan/alphasource/internal/users/owner"
	"github.com/taibuivan/alphasource/internal/users/twofactor"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "alphasource"))
	slog.SetDefault(log)

	log.Info("[AlphaSource] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "alphasource"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("smtp_enabled", cfg.SMTP.Enabled()),
		slog.Bool("federated_login_enabled", cfg.OAuth.Enabled()),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Sessions ───────────────────────────────────────────────────────
	sessionStore, err := auth.NewRedisSessionStore(cfg.RedisURL, auth.SessionStoreOptions{
		Secret: cfg.SessionSecret,
		MaxAge: cfg.SessionMaxAge,
		Secure: cfg.IsProduction(),
	})
	must(log, err, "initialize session store")
	defer func() {
		if cerr := sessionStore.Close(); cerr != nil {
			log.Error("session store close error", slog.Any("error", cerr))
		}
	}()
	sessionManager := auth.NewSessionManager(sessionStore, cfg.SessionCookieName)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	auditRecorder := audit.NewRecorder(audit.NewPostgresStore(pool))
	notifier := mailer.NewFromConfig(cfg.SMTP, cfg.PublicBaseURL, log)

	settingsService, err := settings.NewService(settings.NewPostgresStore(pool), auditRecorder, cfg.SettingsCacheTTL)
	must(log, err, "initialize settings")
	defer settingsService.Close()

	userRepository := auth.NewUserRepository(pool)
	twoFactorService := twofactor.NewService(
		userRepository,
		twofactor.NewPostgresStore(pool),
		twofactor.NewEngine(cfg.TOTPIssuer),
		notifier,
	)

	authService := auth.NewService(auth.Dependencies{
		Users:         userRepository,
		Verifications: auth.NewVerificationTokenRepository(pool),
		Challenges:    auth.NewChallengeRepository(rdb),
		Notifier:      notifier,
		SecondFactor:  twoFactorService,
		Registration:  settingsService,
		Audit:         auditRecorder,
		ChallengeTTL:  cfg.LoginChallengeTTL,
	})
	gate := middleware.NewGate(authService)

	var federated *auth.FederatedProvider
	if cfg.OAuth.Enabled() {
		states := sec.NewStateSigner(cfg.SessionSecret, constants.StateIssuer)
		federated = auth.NewFederatedProvider(cfg.OAuth, cfg.PublicBaseURL, states)
	}

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, sessionManager, federated, gate),
		TwoFactor: twofactor.NewHandler(twoFactorService, gate),
		Account:   account.NewHandler(account.NewService(userRepository), gate),
		Owner:     owner.NewHandler(owner.NewService(userRepository, auditRecorder), gate),
		Settings:  settings.NewHandler(settingsService, gate),
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, api.Dependencies{
		Sessions:    sessionManager,
		Maintenance: settingsService,
	}, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
