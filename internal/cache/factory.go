package cache

import (
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL is the Redis connection URL. Empty means in-memory cache.
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	// DefaultTTL is the default TTL for cache entries.
	DefaultTTL time.Duration
}

// New creates a cache based on the provided configuration.
// When a Redis URL is configured but the connection fails, it falls back
// to the in-memory cache so the site keeps serving.
func New(cfg Config) Cache {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			slog.Info("using Redis cache", "prefix", cfg.Prefix)
			return rc
		}
		slog.Warn("Redis unavailable, falling back to memory cache", "error", err)
	}

	return NewMemoryCache(cfg.DefaultTTL)
}
