// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evently/eventline/internal/audit"
	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/render"
	"github.com/evently/eventline/internal/store"
	"github.com/evently/eventline/internal/util"
)

// auditPageSize is how many audit entries one admin page shows.
const auditPageSize = 50

// AdminHandler handles the admin area.
type AdminHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	events   *cache.EventCache
	recorder *audit.Recorder
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, events *cache.EventCache) *AdminHandler {
	return &AdminHandler{
		queries:  store.New(db),
		renderer: renderer,
		events:   events,
		recorder: audit.NewRecorder(db),
	}
}

// DashboardData holds counters for the admin dashboard.
type DashboardData struct {
	EventCount int64
	UserCount  int64
	AuditCount int64
	CacheStats *cache.Stats
}

// Dashboard renders the admin dashboard.
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var data DashboardData
	var err error

	if data.EventCount, err = h.queries.CountEvents(r.Context()); err != nil {
		logAndInternalError(w, "failed to count events", "error", err)
		return
	}
	if data.UserCount, err = h.queries.CountUsers(r.Context()); err != nil {
		logAndInternalError(w, "failed to count users", "error", err)
		return
	}
	if data.AuditCount, err = h.queries.CountAuditEntries(r.Context()); err != nil {
		logAndInternalError(w, "failed to count audit entries", "error", err)
		return
	}
	if h.events != nil {
		if stats, ok := h.events.Stats(); ok {
			data.CacheStats = &stats
		}
	}

	if err := h.renderer.Render(w, r, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "failed to render dashboard", "error", err)
	}
}

// EventsList renders the admin event listing, including drafts and archives.
// GET /admin/events
func (h *AdminHandler) EventsList(w http.ResponseWriter, r *http.Request) {
	events, err := h.queries.ListEvents(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "admin/events", render.TemplateData{
		Title: "Events",
		User:  middleware.GetUser(r),
		Data:  events,
	}); err != nil {
		logAndInternalError(w, "failed to render admin events", "error", err)
	}
}

// EventNew renders the create-event form.
// GET /admin/events/new
func (h *AdminHandler) EventNew(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "admin/event_form", render.TemplateData{
		Title: "New Event",
		User:  middleware.GetUser(r),
		Data:  model.Event{Status: model.EventStatusDraft},
	}); err != nil {
		logAndInternalError(w, "failed to render event form", "error", err)
	}
}

// EventCreate handles the create-event form submission.
// POST /admin/events
func (h *AdminHandler) EventCreate(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminEvents) {
		return
	}

	form, ok := h.parseEventForm(w, r, redirectAdminEvents+RouteSuffixNew)
	if !ok {
		return
	}

	slug, err := h.uniqueSlug(r.Context(), form.Title, 0)
	if err != nil {
		logAndInternalError(w, "failed to generate slug", "error", err)
		return
	}

	now := time.Now()
	event, err := h.queries.CreateEvent(r.Context(), store.CreateEventParams{
		Slug:        slug,
		Title:       form.Title,
		Date:        form.Date,
		Location:    form.Location,
		Image:       form.Image,
		Description: form.Description,
		Status:      form.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		logAndInternalError(w, "failed to create event", "error", err)
		return
	}

	h.invalidateEventCache(r.Context(), event.Slug)
	_ = h.recorder.RecordEvent(r.Context(), model.AuditLevelInfo, "Event created: "+event.Title,
		middleware.GetUserIDPtr(r), middleware.GetClientIP(r),
		map[string]any{"event_id": event.ID, "slug": event.Slug})

	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event created")
}

// EventEdit renders the edit-event form.
// GET /admin/events/{id}
func (h *AdminHandler) EventEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminEvents, "event", id,
		func(id int64) (model.Event, error) { return h.queries.GetEventByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.renderer.Render(w, r, "admin/event_form", render.TemplateData{
		Title: "Edit Event",
		User:  middleware.GetUser(r),
		Data:  event,
	}); err != nil {
		logAndInternalError(w, "failed to render event form", "error", err)
	}
}

// EventUpdate handles the edit-event form submission.
// POST /admin/events/{id}
func (h *AdminHandler) EventUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminEvents, "event", id,
		func(id int64) (model.Event, error) { return h.queries.GetEventByID(r.Context(), id) })
	if !ok {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminEvents) {
		return
	}

	editURL := fmt.Sprintf("%s/%d", redirectAdminEvents, id)
	form, ok := h.parseEventForm(w, r, editURL)
	if !ok {
		return
	}

	// Keep the slug stable unless the title changed
	slug := event.Slug
	if form.Title != event.Title {
		var err error
		if slug, err = h.uniqueSlug(r.Context(), form.Title, id); err != nil {
			logAndInternalError(w, "failed to generate slug", "error", err)
			return
		}
	}

	if err := h.queries.UpdateEvent(r.Context(), store.UpdateEventParams{
		Slug:        slug,
		Title:       form.Title,
		Date:        form.Date,
		Location:    form.Location,
		Image:       form.Image,
		Description: form.Description,
		Status:      form.Status,
		UpdatedAt:   time.Now(),
		ID:          id,
	}); err != nil {
		logAndInternalError(w, "failed to update event", "error", err)
		return
	}

	// The old slug may still be cached when the slug changed
	h.invalidateEventCache(r.Context(), event.Slug)
	if slug != event.Slug {
		h.invalidateEventCache(r.Context(), slug)
	}
	_ = h.recorder.RecordEvent(r.Context(), model.AuditLevelInfo, "Event updated: "+form.Title,
		middleware.GetUserIDPtr(r), middleware.GetClientIP(r),
		map[string]any{"event_id": id, "slug": slug})

	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event updated")
}

// EventDelete removes an event.
// POST /admin/events/{id}/delete
func (h *AdminHandler) EventDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminEvents, "event", id,
		func(id int64) (model.Event, error) { return h.queries.GetEventByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.queries.DeleteEvent(r.Context(), id); err != nil {
		logAndInternalError(w, "failed to delete event", "error", err)
		return
	}

	h.invalidateEventCache(r.Context(), event.Slug)
	_ = h.recorder.RecordEvent(r.Context(), model.AuditLevelInfo, "Event deleted: "+event.Title,
		middleware.GetUserIDPtr(r), middleware.GetClientIP(r),
		map[string]any{"event_id": id, "slug": event.Slug})

	flashSuccess(w, r, h.renderer, redirectAdminEvents, "Event deleted")
}

// AuditListData holds one page of audit entries.
type AuditListData struct {
	Entries []model.AuditEntry
	Page    int
	Pages   int
	Total   int64
}

// AuditList renders the audit log.
// GET /admin/audit
func (h *AdminHandler) AuditList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	total, err := h.queries.CountAuditEntries(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count audit entries", "error", err)
		return
	}

	entries, err := h.queries.ListAuditEntries(r.Context(), store.ListAuditEntriesParams{
		Limit:  auditPageSize,
		Offset: int64(page-1) * auditPageSize,
	})
	if err != nil {
		logAndInternalError(w, "failed to list audit entries", "error", err)
		return
	}

	pages := int((total + auditPageSize - 1) / auditPageSize)
	if pages < 1 {
		pages = 1
	}

	if err := h.renderer.Render(w, r, "admin/audit", render.TemplateData{
		Title: "Audit Log",
		User:  middleware.GetUser(r),
		Data: AuditListData{
			Entries: entries,
			Page:    page,
			Pages:   pages,
			Total:   total,
		},
	}); err != nil {
		logAndInternalError(w, "failed to render audit log", "error", err)
	}
}

// eventForm holds parsed and validated event form fields.
type eventForm struct {
	Title       string
	Date        time.Time
	Location    string
	Image       string
	Description string
	Status      string
}

// parseEventForm validates the event form. On failure it redirects with a
// flash message and returns ok=false.
func (h *AdminHandler) parseEventForm(w http.ResponseWriter, r *http.Request, backURL string) (eventForm, bool) {
	form := eventForm{
		Title:       r.FormValue("title"),
		Location:    r.FormValue("location"),
		Image:       r.FormValue("image"),
		Description: r.FormValue("description"),
		Status:      r.FormValue("status"),
	}

	if form.Title == "" || form.Location == "" {
		flashError(w, r, h.renderer, backURL, "Title and location are required")
		return eventForm{}, false
	}

	date, err := time.ParseInLocation("2006-01-02", r.FormValue("date"), time.Local)
	if err != nil {
		flashError(w, r, h.renderer, backURL, "Date must be in YYYY-MM-DD format")
		return eventForm{}, false
	}
	form.Date = date

	switch form.Status {
	case model.EventStatusDraft, model.EventStatusPublished, model.EventStatusArchived:
	case "":
		form.Status = model.EventStatusDraft
	default:
		flashError(w, r, h.renderer, backURL, "Invalid event status")
		return eventForm{}, false
	}

	return form, true
}

// uniqueSlug derives a slug from the title, appending a counter when taken.
func (h *AdminHandler) uniqueSlug(ctx context.Context, title string, excludeID int64) (string, error) {
	base := util.Slugify(title)
	if base == "" {
		base = "event"
	}

	slug := base
	for i := 2; ; i++ {
		taken, err := h.queries.EventSlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// eventID parses the {id} URL parameter.
func (h *AdminHandler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminEvents, "Invalid event ID")
		return 0, false
	}
	return id, true
}

// invalidateEventCache drops the cached listing and one slug entry.
func (h *AdminHandler) invalidateEventCache(ctx context.Context, slug string) {
	if h.events == nil {
		return
	}
	if err := h.events.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate event cache", "error", err)
	}
	if err := h.events.InvalidateSlug(ctx, slug); err != nil {
		slog.Warn("failed to invalidate event slug cache", "error", err, "slug", slug)
	}
}
