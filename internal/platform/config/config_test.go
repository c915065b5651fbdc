// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alphasource")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_SECRET", testSecret)
}

/*
TestLoad_Defaults verifies the defaults applied when only required variables are set.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "Alpha Source", cfg.TOTPIssuer)
	assert.Equal(t, 5*time.Minute, cfg.LoginChallengeTTL)
	assert.Equal(t, 168*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.SMTP.Enabled())
	assert.False(t, cfg.OAuth.Enabled())
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.OAuth.Scopes)
	assert.True(t, cfg.IsDevelopment())
}

/*
TestLoad_MissingRequired verifies that required variables are enforced.
*/
func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

/*
TestLoad_ShortSecret verifies that weak session secrets are rejected.
*/
func TestLoad_ShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "short")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

/*
TestLoad_PartialOAuth verifies that a half-configured provider is rejected.
*/
func TestLoad_PartialOAuth(t *testing.T) {
	setRequired(t)
	t.Setenv("OAUTH_CLIENT_ID", "client")
	t.Setenv("OAUTH_AUTH_URL", "https://idp.example.com/authorize")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAUTH_TOKEN_URL")
}

/*
TestConfig_AllowsOrigin covers development and production CORS decisions.
*/
func TestConfig_AllowsOrigin(t *testing.T) {
	dev := &config.Config{Environment: "development"}
	assert.True(t, dev.AllowsOrigin("http://localhost:3000"))

	prod := &config.Config{Environment: "production", AllowedOriginSuffix: "alphasource.app"}
	assert.True(t, prod.AllowsOrigin("https://www.alphasource.app"))
	assert.False(t, prod.AllowsOrigin("https://evil.example.com"))
}

/*
TestLoadJanitor_OnlyNeedsDatabase loads the janitor settings without the
server's Redis and session variables.
*/
func TestLoadJanitor_OnlyNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/alphasource")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := config.LoadJanitor()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/alphasource", cfg.DatabaseURL)
	assert.False(t, cfg.Debug)

	t.Setenv("DATABASE_URL", "")
	_, err = config.LoadJanitor()
	assert.Error(t, err)
}
