// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/evently/eventline/internal/audit"
	"github.com/evently/eventline/internal/auth"
	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/render"
	"github.com/evently/eventline/internal/store"
)

// OAuthHandler handles the Google sign-in flow.
type OAuthHandler struct {
	queries        *store.Queries
	provider       *auth.GoogleProvider
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	recorder       *audit.Recorder
	authHandler    *AuthHandler
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(db *sql.DB, provider *auth.GoogleProvider, renderer *render.Renderer, sm *scs.SessionManager, ah *AuthHandler) *OAuthHandler {
	return &OAuthHandler{
		queries:        store.New(db),
		provider:       provider,
		renderer:       renderer,
		sessionManager: sm,
		recorder:       audit.NewRecorder(db),
		authHandler:    ah,
	}
}

// GoogleStart redirects the browser to Google's consent screen.
// GET /auth/google
func (h *OAuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	// Random state ties the callback to this session
	state := uuid.NewString()
	h.sessionManager.Put(r.Context(), middleware.SessionKeyOAuthState, state)

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusSeeOther)
}

// GoogleCallback handles the redirect back from Google.
// GET /auth/google/callback
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	clientIP := middleware.GetClientIP(r)

	wantState := h.sessionManager.PopString(r.Context(), middleware.SessionKeyOAuthState)
	gotState := r.URL.Query().Get("state")
	if wantState == "" || gotState != wantState {
		_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
			"Google sign-in rejected: state mismatch", nil, clientIP, nil)
		flashError(w, r, h.renderer, redirectLogin, "Sign-in session expired. Please try again.")
		return
	}

	if errCode := r.URL.Query().Get("error"); errCode != "" {
		// User cancelled on the consent screen
		flashError(w, r, h.renderer, redirectLogin, "Google sign-in was cancelled.")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		flashError(w, r, h.renderer, redirectLogin, "Google sign-in failed. Please try again.")
		return
	}

	token, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("Google token exchange failed", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Google sign-in failed. Please try again.")
		return
	}

	profile, err := h.provider.FetchProfile(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnverifiedEmail) {
			_ = h.recorder.RecordAuth(r.Context(), model.AuditLevelWarning,
				"Google sign-in rejected: unverified email", nil, clientIP, nil)
			flashError(w, r, h.renderer, redirectLogin, "Your Google email address is not verified.")
			return
		}
		slog.Error("Google profile fetch failed", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Google sign-in failed. Please try again.")
		return
	}

	user, created, err := h.findOrCreateUser(r.Context(), profile)
	if err != nil {
		logAndInternalError(w, "failed to upsert Google user", "error", err, "email", profile.Email)
		return
	}
	if created {
		_ = h.recorder.RecordUser(r.Context(), model.AuditLevelInfo, "User account created via Google",
			&user.ID, clientIP, map[string]any{"email": user.Email})
	}

	h.authHandler.completeLogin(w, r, user, clientIP)
}

// findOrCreateUser matches a Google profile to a local account by email,
// creating a member account on first sign-in. Name and image follow the
// Google profile; an existing password hash is never touched.
func (h *OAuthHandler) findOrCreateUser(ctx context.Context, profile auth.GoogleProfile) (model.User, bool, error) {
	user, err := h.queries.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		if user.Name != profile.Name || user.Image != profile.Picture {
			if err := h.queries.UpdateUserProfile(ctx, store.UpdateUserProfileParams{
				Name:      profile.Name,
				Image:     profile.Picture,
				UpdatedAt: time.Now(),
				ID:        user.ID,
			}); err != nil {
				return model.User{}, false, err
			}
			user.Name = profile.Name
			user.Image = profile.Picture
		}
		return user, false, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, err
	}

	now := time.Now()
	user, err = h.queries.CreateUser(ctx, store.CreateUserParams{
		Email:     profile.Email,
		Name:      profile.Name,
		Image:     profile.Picture,
		Role:      model.RoleMember,
		Provider:  model.ProviderGoogle,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.User{}, false, err
	}
	return user, true, nil
}
