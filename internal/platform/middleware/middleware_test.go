// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/middleware"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

type staticSessions struct {
	identity sec.Identity
	ok       bool
}

func (sessions staticSessions) Current(*http.Request) (sec.Identity, bool) {
	return sessions.identity, sessions.ok
}

type staticMaintenance struct {
	enabled bool
	message string
	err     error
}

func (status staticMaintenance) Maintenance(context.Context) (bool, string, error) {
	return status.enabled, status.message, status.err
}

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

/*
TestLoadIdentity verifies that the session identity reaches downstream handlers.
*/
func TestLoadIdentity(t *testing.T) {
	var got sec.Identity
	var found bool
	handler := middleware.LoadIdentity(staticSessions{identity: sec.Identity{UserID: "u1"}, ok: true})(
		http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			got, found = ctxutil.GetIdentity(request.Context())
		}),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, found)
	assert.Equal(t, "u1", got.UserID)

	anonymous := middleware.LoadIdentity(staticSessions{})(
		http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_, found = ctxutil.GetIdentity(request.Context())
		}),
	)
	anonymous.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, found)
}

/*
TestMaintenance covers blocking, exemptions and fail-open behaviour.
*/
func TestMaintenance(t *testing.T) {
	tests := []struct {
		name   string
		status staticMaintenance
		path   string
		code   int
	}{
		{"off", staticMaintenance{}, "/api/codes", http.StatusOK},
		{"on", staticMaintenance{enabled: true, message: "Back soon"}, "/api/codes", http.StatusServiceUnavailable},
		{"exempt_auth", staticMaintenance{enabled: true}, "/api/auth/login", http.StatusOK},
		{"exempt_owner", staticMaintenance{enabled: true}, "/api/owner/settings", http.StatusOK},
		{"lookup_failure", staticMaintenance{err: errors.New("down")}, "/api/codes", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Maintenance(tt.status, "/api/auth/", "/api/owner/")(okHandler)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, recorder.Code)
		})
	}

	handler := middleware.Maintenance(staticMaintenance{enabled: true, message: "Back soon"})(okHandler)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/codes", nil))
	assert.Contains(t, recorder.Body.String(), "Back soon")
	assert.Contains(t, recorder.Body.String(), "SERVICE_UNAVAILABLE")
}

/*
TestRealIP checks proxy header precedence.
*/
func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", middleware.RealIP(request))

	request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", middleware.RealIP(request))

	request.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", middleware.RealIP(request))
}
