// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/constants"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

func newChallengeRepository(t *testing.T) (*auth.RedisChallengeRepository, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return auth.NewChallengeRepository(client), server
}

/*
TestRedisChallengeRepository_RoundTrip stores, reads and deletes a challenge.
*/
func TestRedisChallengeRepository_RoundTrip(t *testing.T) {
	repository, server := newChallengeRepository(t)
	ctx := context.Background()

	expires := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	challenge := &auth.LoginChallenge{
		TokenHash: "digest",
		UserID:    "user-1",
		ExpiresAt: expires,
		CreatedAt: expires.Add(-5 * time.Minute),
	}
	require.NoError(t, repository.Create(ctx, challenge, 5*time.Minute))

	assert.True(t, server.Exists(constants.RedisPrefixLoginChallenge+"digest"))
	assert.Equal(t, 5*time.Minute, server.TTL(constants.RedisPrefixLoginChallenge+"digest"))

	found, err := repository.Find(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, "digest", found.TokenHash)
	assert.Equal(t, "user-1", found.UserID)
	assert.True(t, found.ExpiresAt.Equal(expires))

	removed, err := repository.Delete(ctx, "digest")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repository.Delete(ctx, "digest")
	require.NoError(t, err)
	assert.False(t, removed, "a second delete finds nothing")

	_, err = repository.Find(ctx, "digest")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}

func TestRedisChallengeRepository_KeyExpires(t *testing.T) {
	repository, server := newChallengeRepository(t)
	ctx := context.Background()

	require.NoError(t, repository.Create(ctx, &auth.LoginChallenge{TokenHash: "digest", UserID: "user-1"}, time.Minute))

	server.FastForward(time.Minute + time.Second)

	_, err := repository.Find(ctx, "digest")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}
