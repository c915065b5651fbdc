// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/alphasource/internal/platform/config"
	"github.com/taibuivan/alphasource/internal/platform/constants"
	"github.com/taibuivan/alphasource/internal/platform/middleware"
	"github.com/taibuivan/alphasource/internal/system/settings"
	"github.com/taibuivan/alphasource/internal/users/account"
	"github.com/taibuivan/alphasource/internal/users/auth"
	"github.com/taibuivan/alphasource/internal/users/owner"
	"github.com/taibuivan/alphasource/internal/users/twofactor"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here and mount it in [NewServer].
type Handlers struct {
	// Liveness is the /health handler, always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler, 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles signup, login, logout, verification and federated login.
	Auth *auth.Handler

	// TwoFactor manages TOTP enrollment.
	TwoFactor *twofactor.Handler

	// Account serves profile reads and edits.
	Account *account.Handler

	// Owner serves the owner dashboard.
	Owner *owner.Handler

	// Settings serves the owner-editable site switches.
	Settings *settings.Handler
}

// Dependencies are the request-scoped collaborators of the middleware chain.
type Dependencies struct {
	// Sessions resolves the session cookie to an identity.
	Sessions middleware.SessionReader

	// Maintenance reports the maintenance switch.
	Maintenance middleware.MaintenanceStatus
}

// maintenanceExempt lists the prefixes served during maintenance.
var maintenanceExempt = []string{"/health", "/ready", "/api/auth/", "/api/login", "/api/owner/"}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, deps Dependencies, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)
	r.Use(middleware.LoadIdentity(deps.Sessions))
	if deps.Maintenance != nil {
		r.Use(middleware.Maintenance(deps.Maintenance, maintenanceExempt...))
	}

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	r.Route("/api", func(api chi.Router) {
		api.Get("/login", h.Auth.BeginFederatedLogin)
		api.Mount("/auth/2fa", h.TwoFactor.Routes())
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/account", h.Account.Routes())
		api.Mount("/owner/settings", h.Settings.Routes())
		api.Mount("/owner", h.Owner.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
