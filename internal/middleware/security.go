// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecurityHeadersConfig holds configuration for security headers.
type SecurityHeadersConfig struct {
	// IsDevelopment indicates if the application is running in development mode.
	// When true, HSTS is disabled.
	IsDevelopment bool

	// ContentSecurityPolicy is the CSP header value.
	// If empty, a default policy is used.
	ContentSecurityPolicy string

	// HSTSMaxAge is the max-age for Strict-Transport-Security header in seconds.
	// Default is 31536000 (1 year). Set to 0 to disable HSTS.
	HSTSMaxAge int

	// HSTSIncludeSubDomains includes subdomains in HSTS policy.
	HSTSIncludeSubDomains bool

	// FrameOptions controls the X-Frame-Options header.
	// Valid values: "DENY", "SAMEORIGIN", or empty to disable.
	FrameOptions string

	// ReferrerPolicy controls the Referrer-Policy header.
	// Default is "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// ExcludePaths are path prefixes that should skip security headers.
	// Useful for API endpoints that need different policies.
	ExcludePaths []string
}

// DefaultSecurityHeadersConfig returns a SecurityHeadersConfig with sensible defaults.
func DefaultSecurityHeadersConfig(isDev bool) SecurityHeadersConfig {
	cfg := SecurityHeadersConfig{
		IsDevelopment:  isDev,
		HSTSMaxAge:     31536000, // 1 year
		FrameOptions:   "SAMEORIGIN",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}

	// Event images are hot-linked from external hosts, so img-src allows https.
	// Google sign-in is a redirect flow and needs no script or frame sources.
	cfg.ContentSecurityPolicy = buildCSP(map[string]string{
		"default-src": "'self'",
		"script-src":  "'self'",
		"style-src":   "'self' 'unsafe-inline'",
		"img-src":     "'self' data: https:",
		"font-src":    "'self' data:",
		"connect-src": "'self'",
		"object-src":  "'none'",
		"base-uri":    "'self'",
		"form-action": "'self'",
	})

	if !isDev {
		cfg.HSTSIncludeSubDomains = true
	}

	return cfg
}

// buildCSP builds a Content-Security-Policy string from a map of directives.
func buildCSP(directives map[string]string) string {
	var parts []string
	// Define order for consistent output
	order := []string{
		"default-src", "script-src", "style-src", "img-src", "font-src",
		"connect-src", "frame-src", "object-src", "base-uri", "form-action",
	}

	for _, key := range order {
		if value, ok := directives[key]; ok {
			parts = append(parts, key+" "+value)
		}
	}

	return strings.Join(parts, "; ")
}

// SecurityHeaders returns a middleware that adds security headers to responses.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range cfg.ExcludePaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.ContentSecurityPolicy != "" {
				w.Header().Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}

			// Strict-Transport-Security (only in production over HTTPS)
			if !cfg.IsDevelopment && cfg.HSTSMaxAge > 0 {
				hsts := "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
				if cfg.HSTSIncludeSubDomains {
					hsts += "; includeSubDomains"
				}
				w.Header().Set("Strict-Transport-Security", hsts)
			}

			if cfg.FrameOptions != "" {
				w.Header().Set("X-Frame-Options", cfg.FrameOptions)
			}

			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			if cfg.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", cfg.ReferrerPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
