// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// Session keys for storing user data.
const (
	SessionKeyUserID     = "user_id"
	SessionKeyOAuthState = "oauth_state"
)

// Auth creates middleware that requires authentication.
// It checks for a valid user session and redirects to login if not authenticated.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser creates middleware that loads the current user into the request context.
// This should be used after Auth middleware.
func LoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				// User not found or error - clear session and redirect to login
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalLoadUser creates middleware that optionally loads the current user into context.
// Unlike LoadUser, this does NOT redirect to login if the user is not found.
// Use this for frontend routes where authentication is optional but user context is useful.
func OptionalLoadUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin creates middleware that requires the admin role.
// Must be used after LoadUser.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil || !user.IsAdmin() {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or nil if not found.
// Useful for optional user ID parameters in audit logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// RequestPath creates middleware that stores the request path in the context.
// The audit log handler includes it in entry metadata for error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}

// GetClientIP extracts the client IP from the request.
func GetClientIP(r *http.Request) string {
	// Check X-Real-IP header (set by reverse proxies)
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// X-Forwarded-For can contain multiple IPs; take the first one
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}

	return r.RemoteAddr
}
