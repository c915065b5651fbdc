// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSessionSecretLength is the shortest accepted SESSION_SECRET in bytes.
const minSessionSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the Alpha Source API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Sessions
	SessionSecret     string        `env:"SESSION_SECRET,required"`
	SessionMaxAge     time.Duration `env:"SESSION_MAX_AGE"     envDefault:"168h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"alphasource_session"`

	// PublicBaseURL is the externally visible origin used in emails and OAuth redirects.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:5000"`

	// Two-factor authentication
	TOTPIssuer        string        `env:"TOTP_ISSUER"         envDefault:"Alpha Source"`
	LoginChallengeTTL time.Duration `env:"LOGIN_CHALLENGE_TTL" envDefault:"5m"`

	// Outbound email (empty host selects the log-only mailer)
	SMTP SMTPConfig `envPrefix:"SMTP_"`

	// Optional federated identity provider
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// SettingsCacheTTL bounds how stale cached site settings may be.
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"30s"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"alphasource.app"`
}

// SMTPConfig holds the outbound mail relay settings.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"     envDefault:"Alpha Source <noreply@alphasource.app>"`
}

// Enabled reports whether a real SMTP relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// OAuthConfig describes a single OpenID-style identity provider.
type OAuthConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserInfoURL  string   `env:"USERINFO_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// Enabled reports whether federated login is configured.
func (c OAuthConfig) Enabled() bool {
	return c.ClientID != ""
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// JanitorConfig is the subset of settings the maintenance job needs.
type JanitorConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

// LoadJanitor parses only the variables the janitor uses, so a cron job
// does not need the server's Redis or session secrets.
func LoadJanitor() (*JanitorConfig, error) {
	cfg := &JanitorConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var problems []error

	if len(c.SessionSecret) < minSessionSecretLength {
		problems = append(problems, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength))
	}

	if c.LoginChallengeTTL <= 0 {
		problems = append(problems, errors.New("LOGIN_CHALLENGE_TTL must be positive"))
	}

	if c.OAuth.Enabled() {
		missing := make([]string, 0, 4)
		if c.OAuth.ClientSecret == "" {
			missing = append(missing, "OAUTH_CLIENT_SECRET")
		}
		if c.OAuth.AuthURL == "" {
			missing = append(missing, "OAUTH_AUTH_URL")
		}
		if c.OAuth.TokenURL == "" {
			missing = append(missing, "OAUTH_TOKEN_URL")
		}
		if c.OAuth.UserInfoURL == "" {
			missing = append(missing, "OAUTH_USERINFO_URL")
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Errorf("OAUTH_CLIENT_ID is set but %s missing", strings.Join(missing, ", ")))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(problems...))
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowsOrigin reports whether a browser origin may call the API with credentials.
func (c *Config) AllowsOrigin(origin string) bool {
	if c.IsDevelopment() {
		return true
	}
	return c.AllowedOriginSuffix != "" && strings.HasSuffix(origin, c.AllowedOriginSuffix)
}
