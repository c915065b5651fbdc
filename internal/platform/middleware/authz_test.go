// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/middleware"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// fakeLoader returns whatever principal is currently stored for a user.
type fakeLoader struct {
	principals map[string]*sec.Principal
	err        error
	calls      int
}

func (loader *fakeLoader) LoadPrincipal(_ context.Context, userID string) (*sec.Principal, error) {
	loader.calls++
	if loader.err != nil {
		return nil, loader.err
	}
	principal, ok := loader.principals[userID]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *principal
	return &copied, nil
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return apperr.As(err).HTTPStatus
}

/*
TestPredicates is a table of principal shapes against every predicate.
*/
func TestPredicates(t *testing.T) {
	verified := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		principal *sec.Principal
		auth      int
		verified  int
		staff     int
		owner     int
	}{
		{"anonymous", nil, 401, 401, 401, 401},
		{"user_unverified", &sec.Principal{Role: sec.RoleUser}, 200, 403, 403, 403},
		{"user_verified", &sec.Principal{Role: sec.RoleUser, EmailVerifiedAt: &verified}, 200, 200, 403, 403},
		{"legacy_admin", &sec.Principal{Role: sec.RoleUser, IsAdmin: true}, 200, 403, 200, 403},
		{"staff", &sec.Principal{Role: sec.RoleStaff, EmailVerifiedAt: &verified}, 200, 200, 200, 403},
		{"owner", &sec.Principal{Role: sec.RoleOwner, EmailVerifiedAt: &verified}, 200, 200, 200, 200},
		{"banned_owner", &sec.Principal{Role: sec.RoleOwner, IsBanned: true}, 403, 403, 403, 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.auth, statusOf(middleware.IsAuthenticated(tt.principal)))
			assert.Equal(t, tt.verified, statusOf(middleware.IsEmailVerified(tt.principal)))
			assert.Equal(t, tt.staff, statusOf(middleware.IsStaffOrOwner(tt.principal)))
			assert.Equal(t, tt.staff, statusOf(middleware.IsAdmin(tt.principal)))
			assert.Equal(t, tt.owner, statusOf(middleware.IsOwner(tt.principal)))
		})
	}
}

/*
TestIsAuthenticated_BanReason verifies that the stored reason reaches the client message.
*/
func TestIsAuthenticated_BanReason(t *testing.T) {
	err := middleware.IsAuthenticated(&sec.Principal{IsBanned: true, BannedReason: "spam"})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "ACCOUNT_BANNED", appError.Code)
	assert.Contains(t, appError.Message, "spam")
}

func serveGuarded(guard func(http.Handler) http.Handler, identity *sec.Identity) (*httptest.ResponseRecorder, *sec.Principal) {
	var seen *sec.Principal
	handler := guard(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetPrincipal(request.Context())
		writer.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/staff/queue", nil)
	if identity != nil {
		request = request.WithContext(ctxutil.WithIdentity(request.Context(), *identity))
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder, seen
}

/*
TestGate_Require covers the HTTP status produced for each guard outcome.
*/
func TestGate_Require(t *testing.T) {
	loader := &fakeLoader{principals: map[string]*sec.Principal{
		"staff-1": {UserID: "staff-1", Role: sec.RoleStaff},
	}}
	gate := middleware.NewGate(loader)

	t.Run("anonymous", func(t *testing.T) {
		recorder, _ := serveGuarded(gate.StaffOrOwner, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("unknown_user", func(t *testing.T) {
		recorder, _ := serveGuarded(gate.Authenticated, &sec.Identity{UserID: "ghost"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("admitted_with_principal", func(t *testing.T) {
		recorder, principal := serveGuarded(gate.StaffOrOwner, &sec.Identity{UserID: "staff-1"})
		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, principal)
		assert.Equal(t, "staff-1", principal.UserID)
	})

	t.Run("insufficient_role", func(t *testing.T) {
		recorder, _ := serveGuarded(gate.Owner, &sec.Identity{UserID: "staff-1"})
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("store_failure", func(t *testing.T) {
		failing := middleware.NewGate(&fakeLoader{err: errors.New("connection refused")})
		recorder, _ := serveGuarded(failing.Authenticated, &sec.Identity{UserID: "staff-1"})
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}

/*
TestGate_LiveReload verifies that a ban or demotion applies on the very next request.
*/
func TestGate_LiveReload(t *testing.T) {
	loader := &fakeLoader{principals: map[string]*sec.Principal{
		"u1": {UserID: "u1", Role: sec.RoleStaff},
	}}
	gate := middleware.NewGate(loader)
	identity := &sec.Identity{UserID: "u1"}

	// 1. Admitted while staff
	recorder, _ := serveGuarded(gate.StaffOrOwner, identity)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 2. Demoted without touching the session
	loader.principals["u1"].Role = sec.RoleUser
	recorder, _ = serveGuarded(gate.StaffOrOwner, identity)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// 3. Banned without touching the session
	loader.principals["u1"].IsBanned = true
	recorder, _ = serveGuarded(gate.Authenticated, identity)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "ACCOUNT_BANNED")

	assert.Equal(t, 3, loader.calls)
}
