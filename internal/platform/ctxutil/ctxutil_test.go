// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Identity verifies that the session identity can be stored in context.
*/
func TestContext_Identity(t *testing.T) {
	ctx := context.Background()

	// 1. Initially anonymous
	_, ok := ctxutil.GetIdentity(ctx)
	assert.False(t, ok)

	// 2. An empty identity is still anonymous
	_, ok = ctxutil.GetIdentity(ctxutil.WithIdentity(ctx, sec.Identity{}))
	assert.False(t, ok)

	// 3. Inject and retrieve
	ctx = ctxutil.WithIdentity(ctx, sec.Identity{UserID: "user-123"})
	identity, ok := ctxutil.GetIdentity(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-123", identity.UserID)
}

/*
TestContext_Principal verifies that the live principal can be stored in context.
*/
func TestContext_Principal(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.GetPrincipal(ctx))

	ctx = ctxutil.WithPrincipal(ctx, &sec.Principal{UserID: "user-123", Role: sec.RoleStaff})
	principal := ctxutil.GetPrincipal(ctx)

	assert.NotNil(t, principal)
	assert.Equal(t, "user-123", principal.UserID)
	assert.Equal(t, sec.RoleStaff, principal.Role)
}
