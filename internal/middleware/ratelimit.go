// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// newLimiterCache creates a new limiter cache.
func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// rateLimitError is the JSON body returned for rate-limited API requests.
type rateLimitError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeRateLimitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	var body rateLimitError
	body.Error.Code = "rate_limit_exceeded"
	body.Error.Message = "Rate limit exceeded. Please slow down."
	_ = json.NewEncoder(w).Encode(body)
}

// GlobalRateLimiter provides a per-IP rate limiter for API requests.
type GlobalRateLimiter struct {
	cache *limiterCache[string]
}

// NewGlobalRateLimiter creates a new global rate limiter.
func NewGlobalRateLimiter(rps float64, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{
		cache: newLimiterCache[string](rps, burst),
	}
}

// Middleware returns the rate limiting middleware for API routes (returns JSON errors).
func (g *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)

			if !g.cache.get(ip).Allow() {
				slog.Warn("API rate limit exceeded", "ip", ip, "path", r.URL.Path)
				writeRateLimitError(w)
				return
			}

			// Keep the map bounded; limiters rebuild on demand
			g.cache.clearIfExceeds(10000)

			next.ServeHTTP(w, r)
		})
	}
}
