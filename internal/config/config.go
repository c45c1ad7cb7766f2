// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"EVENTLINE_DB_PATH" envDefault:"./data/eventline.db"`
	SessionSecret string `env:"EVENTLINE_SESSION_SECRET,required"`
	ServerHost    string `env:"EVENTLINE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"EVENTLINE_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"EVENTLINE_ENV" envDefault:"development"`
	LogLevel      string `env:"EVENTLINE_LOG_LEVEL" envDefault:"info"`

	// BaseURL is the externally visible origin of the site. It is used to
	// build the OAuth redirect URI registered with the provider console.
	BaseURL string `env:"EVENTLINE_BASE_URL" envDefault:"http://localhost:8080"`

	// Google OAuth credentials (optional; Google sign-in is disabled when empty)
	GoogleClientID     string `env:"EVENTLINE_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"EVENTLINE_GOOGLE_CLIENT_SECRET"`

	// Cache configuration
	RedisURL    string `env:"EVENTLINE_REDIS_URL"`                      // Optional Redis URL for distributed caching
	CachePrefix string `env:"EVENTLINE_CACHE_PREFIX" envDefault:"evl:"` // Redis key prefix
	CacheTTL    int    `env:"EVENTLINE_CACHE_TTL" envDefault:"300"`     // Events cache TTL in seconds

	// Seeding configuration
	DoSeed bool `env:"EVENTLINE_DO_SEED" envDefault:"false"` // Enable sample data seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GoogleOAuthEnabled returns true if Google OAuth credentials are configured.
func (c Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GoogleRedirectURL returns the OAuth callback URL for the configured base URL.
// This exact value must be registered in the provider console.
func (c Config) GoogleRedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/google/callback"
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("EVENTLINE_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("EVENTLINE_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("EVENTLINE_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	// OAuth is all-or-nothing: a lone client ID is a misconfiguration
	if (cfg.GoogleClientID == "") != (cfg.GoogleClientSecret == "") {
		return nil, fmt.Errorf("EVENTLINE_GOOGLE_CLIENT_ID and EVENTLINE_GOOGLE_CLIENT_SECRET must be set together")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
