// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// LoginProtection provides combined IP rate limiting and account lockout protection.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	// Account-based lockout tracking
	failedAttempts map[string]*loginAttempt
	attemptsMu     sync.RWMutex

	maxFailedAttempts int           // Lock account after this many failures
	lockoutDuration   time.Duration // Base lockout duration (doubles with each lockout)
	attemptWindow     time.Duration // Window to count failed attempts
}

// loginAttempt tracks failed login attempts for an account.
type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int // Number of times account has been locked (for exponential backoff)
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before account lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a new login protection instance.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = 0.5
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = 5
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = 15 * time.Minute
	}

	lp := &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		failedAttempts:    make(map[string]*loginAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
	}

	go lp.cleanup()

	return lp
}

// CheckIPRateLimit checks if the IP is rate limited.
// Returns true if the request should be allowed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked checks if an account is currently locked.
// Returns (locked, remainingTime).
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.attemptsMu.RLock()
	attempt, exists := lp.failedAttempts[email]
	lp.attemptsMu.RUnlock()

	if !exists {
		return false, 0
	}

	if time.Now().Before(attempt.lockedUntil) {
		return true, time.Until(attempt.lockedUntil)
	}

	return false, 0
}

// RecordFailedAttempt records a failed login attempt.
// Returns (locked, lockDuration) if the account is now locked.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := time.Now()
	attempt, exists := lp.failedAttempts[email]

	if !exists {
		lp.failedAttempts[email] = &loginAttempt{
			count:       1,
			firstFailed: now,
		}
		return false, 0
	}

	// If the attempt window has passed, reset the counter
	if now.Sub(attempt.firstFailed) > lp.attemptWindow {
		attempt.count = 1
		attempt.firstFailed = now
		return false, 0
	}

	attempt.count++

	if attempt.count >= lp.maxFailedAttempts {
		// Exponential backoff, capped at 24 hours
		lockDuration := lp.lockoutDuration
		for i := 0; i < attempt.lockouts; i++ {
			lockDuration *= 2
			if lockDuration > 24*time.Hour {
				lockDuration = 24 * time.Hour
				break
			}
		}

		attempt.lockedUntil = now.Add(lockDuration)
		attempt.lockouts++
		attempt.count = 0 // Reset count after lockout

		slog.Warn("account locked due to failed attempts",
			"email", email,
			"lockouts", attempt.lockouts,
			"duration", lockDuration,
		)

		return true, lockDuration
	}

	return false, 0
}

// RecordSuccessfulLogin clears failed attempt tracking for an account.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	delete(lp.failedAttempts, email)
}

// GetRemainingAttempts returns the number of remaining attempts before lockout.
func (lp *LoginProtection) GetRemainingAttempts(email string) int {
	lp.attemptsMu.RLock()
	attempt, exists := lp.failedAttempts[email]
	lp.attemptsMu.RUnlock()

	if !exists {
		return lp.maxFailedAttempts
	}

	if time.Since(attempt.firstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}

	remaining := lp.maxFailedAttempts - attempt.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cleanup periodically removes stale entries.
func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		lp.cleanupStaleEntries()
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	now := time.Now()

	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared IP rate limiters due to size")
	}

	lp.attemptsMu.Lock()
	for email, attempt := range lp.failedAttempts {
		// Remove if lockout has expired and no recent attempts
		if now.After(attempt.lockedUntil) &&
			now.Sub(attempt.firstFailed) > lp.attemptWindow {
			delete(lp.failedAttempts, email)
		}
	}
	lp.attemptsMu.Unlock()
}

// Middleware returns HTTP middleware for IP rate limiting on login.
// This should be applied to the login POST route.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only rate limit POST requests
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := GetClientIP(r)

			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip)
				http.Error(w, "Too many login attempts. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
