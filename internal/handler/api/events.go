// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/util"
)

// EventView is the JSON shape of an event.
type EventView struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// toEventView converts an event to its API representation.
// Dates are day-precision, so only the date part is exposed.
func toEventView(e model.Event) EventView {
	return EventView{
		ID:          e.ID,
		Slug:        e.Slug,
		Title:       e.Title,
		Date:        e.Date.Format(time.DateOnly),
		Location:    e.Location,
		Image:       e.Image,
		Description: e.Description,
	}
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, map[string]string{"status": "ok"}, nil)
}

// ListEvents handles GET /api/v1/events.
// Public: returns all published events ordered by date.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListPublished(r.Context())
	if err != nil {
		slog.Error("failed to list events", "error", err)
		WriteInternalError(w, "Failed to list events")
		return
	}

	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, toEventView(e))
	}

	WriteSuccess(w, views, &Meta{Total: int64(len(views))})
}

// GetEvent handles GET /api/v1/events/{slug}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		WriteNotFound(w, "Event not found")
		return
	}

	event, err := h.events.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Event not found")
			return
		}
		slog.Error("failed to get event", "error", err, "slug", slug)
		WriteInternalError(w, "Failed to get event")
		return
	}

	WriteSuccess(w, toEventView(event), nil)
}

// Me handles GET /api/v1/me.
// Returns the session user, or 401 when no session is established.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if userID == 0 {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Session references a deleted account
			WriteUnauthorized(w, "Not authenticated")
			return
		}
		slog.Error("failed to load session user", "error", err, "user_id", userID)
		WriteInternalError(w, "Failed to load user")
		return
	}

	WriteSuccess(w, user.ToSessionUser(), nil)
}
