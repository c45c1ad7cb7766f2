// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/evently/eventline/internal/audit"
	"github.com/evently/eventline/internal/auth"
	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/render"
	"github.com/evently/eventline/internal/store"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
const SessionKeyUserID = "user_id"

// msgInvalidCredentials is shown for every credential failure. The precise
// reason goes to the audit log only, to avoid account enumeration.
const msgInvalidCredentials = "Invalid email or password"

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	authenticator   *auth.Authenticator
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	recorder        *audit.Recorder
	loginProtection *middleware.LoginProtection
	googleEnabled   bool
}

// NewAuthHandler creates a new AuthHandler.
// googleEnabled controls whether the login page shows the Google sign-in button.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection, googleEnabled bool) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		authenticator:   auth.NewAuthenticator(store.New(db)),
		renderer:        renderer,
		sessionManager:  sm,
		recorder:        audit.NewRecorder(db),
		loginProtection: lp,
		googleEnabled:   googleEnabled,
	}
}

// LoginData holds data for the login page.
type LoginData struct {
	GoogleEnabled bool
}

// LoginForm renders the login page.
// Redirects already-authenticated users: admin → dashboard, others → homepage.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID); userID > 0 {
		user, err := h.queries.GetUserByID(r.Context(), userID)
		if err == nil {
			if user.IsAdmin() {
				http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
			return
		}
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{
		Title: "Sign In",
		Data:  LoginData{GoogleEnabled: h.googleEnabled},
	}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	clientIP := middleware.GetClientIP(r)

	// Check if account is locked
	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
				"Login attempt on locked account", nil, clientIP, map[string]any{"email": email})
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	user, err := h.authenticator.Authenticate(r.Context(), email, password)
	if err != nil {
		h.handleFailedLogin(w, r, email, clientIP, err)
		return
	}

	// Clear failed attempts on successful login
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Re-hash password if it uses old/expensive parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	h.completeLogin(w, r, user, clientIP)
}

// handleFailedLogin records the rejection, applies lockout accounting and
// responds with the generic invalid-credentials message.
func (h *AuthHandler) handleFailedLogin(w http.ResponseWriter, r *http.Request, email, clientIP string, err error) {
	switch {
	case errors.Is(err, auth.ErrCredentialsRequired):
		// An empty form reveals nothing about accounts, so the message can
		// be specific. It still goes to the audit log like the other two.
		_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
			"Login failed: missing credentials", nil, clientIP, map[string]any{"email": email})
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required")
		return
	case errors.Is(err, auth.ErrUnknownUser):
		_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
			"Login failed: user not found", nil, clientIP, map[string]any{"email": email})
	case errors.Is(err, auth.ErrInvalidPassword):
		_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
			"Login failed: invalid password", nil, clientIP, map[string]any{"email": email})
	default:
		slog.Error("authentication error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, msgInvalidCredentials)
		return
	}

	// Record failed attempt even for non-existent users to prevent enumeration
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
				"Account locked due to failed attempts", nil, clientIP,
				map[string]any{"email": email, "duration": lockDuration.String()})
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)))
			return
		}
	}

	flashError(w, r, h.renderer, redirectLogin, msgInvalidCredentials)
}

// completeLogin establishes the session for an authenticated user.
// Shared by the credentials and the Google OAuth flows.
func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, user model.User, clientIP string) {
	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		// Don't block login on this error
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelInfo, "User logged in",
		&user.ID, clientIP, map[string]any{"email": user.Email, "provider": user.Provider})

	h.renderer.SetFlash(r, "Welcome back, "+user.Name, "success")

	if user.IsAdmin() {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
	} else {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
	}
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Get user ID for logging before destroying session
	userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID)

	if userID > 0 {
		_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelInfo, "User logged out",
			&userID, middleware.GetClientIP(r), nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)

	flashAndRedirect(w, r, h.renderer, RouteRoot, "You have been signed out.", "info")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
