// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package middleware provides the HTTP middleware chain for the Alpha Source API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthZ/AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"net/http"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/respond"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// # Authorization Predicates

// Check is a pure authorization predicate over a freshly loaded principal.
// It returns nil to admit the request or an [*apperr.AppError] describing
// the denial.
type Check func(principal *sec.Principal) error

// IsAuthenticated admits any principal that is not banned.
//
// A nil principal means the session identity no longer resolves to an
// account and is treated as unauthenticated.
func IsAuthenticated(principal *sec.Principal) error {
	if principal == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if principal.IsBanned {
		return apperr.Banned(principal.BannedReason)
	}
	return nil
}

// IsEmailVerified additionally requires a confirmed email address.
func IsEmailVerified(principal *sec.Principal) error {
	if err := IsAuthenticated(principal); err != nil {
		return err
	}
	if !principal.EmailVerified() {
		return apperr.Forbidden("Email verification required")
	}
	return nil
}

// IsStaffOrOwner additionally requires the staff or owner role (or the
// legacy admin flag).
func IsStaffOrOwner(principal *sec.Principal) error {
	if err := IsAuthenticated(principal); err != nil {
		return err
	}
	if !principal.StaffOrOwner() {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}

// IsAdmin is the historical name of [IsStaffOrOwner].
var IsAdmin Check = IsStaffOrOwner

// IsOwner additionally requires the owner role.
func IsOwner(principal *sec.Principal) error {
	if err := IsAuthenticated(principal); err != nil {
		return err
	}
	if principal.Role != sec.RoleOwner {
		return apperr.Forbidden("Owner access required")
	}
	return nil
}

// # Gate

// PrincipalLoader re-fetches the live account view for a user id.
//
// # Why an interface?
//
// The credential store lives in the users/auth package, which itself depends
// on this package for its routes. The gate only needs this one method.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID string) (*sec.Principal, error)
}

// Gate turns [Check] predicates into route guards. Every guarded request
// reloads the principal so bans and demotions apply on the very next request.
type Gate struct {
	loader PrincipalLoader
}

// NewGate constructs a new [Gate].
func NewGate(loader PrincipalLoader) *Gate {
	return &Gate{loader: loader}
}

// Require blocks requests whose principal fails check.
//
// # Flow
//  1. Read the session [sec.Identity]; absent means HTTP 401.
//  2. Reload the [sec.Principal] from the credential store.
//  3. Evaluate check; a denial is written as 401 or 403.
//  4. Inject the principal into the context for downstream handlers.
func (gate *Gate) Require(check Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Authentication Check ───────────────────────────────────────
			identity, ok := ctxutil.GetIdentity(request.Context())
			if !ok {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Live Reload ────────────────────────────────────────────────
			principal, err := gate.loader.LoadPrincipal(request.Context(), identity.UserID)
			if err != nil {
				if appError := apperr.As(err); appError != nil && appError.Code == "NOT_FOUND" {
					principal = nil
				} else {
					respond.Error(writer, request, err)
					return
				}
			}

			// ── 3. Authorization Check ────────────────────────────────────────
			if err := check(principal); err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// Authenticated guards routes with [IsAuthenticated].
func (gate *Gate) Authenticated(next http.Handler) http.Handler {
	return gate.Require(IsAuthenticated)(next)
}

// EmailVerified guards routes with [IsEmailVerified].
func (gate *Gate) EmailVerified(next http.Handler) http.Handler {
	return gate.Require(IsEmailVerified)(next)
}

// StaffOrOwner guards routes with [IsStaffOrOwner].
func (gate *Gate) StaffOrOwner(next http.Handler) http.Handler {
	return gate.Require(IsStaffOrOwner)(next)
}

// Owner guards routes with [IsOwner].
func (gate *Gate) Owner(next http.Handler) http.Handler {
	return gate.Require(IsOwner)(next)
}
