// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

// newTestAdmin builds an AdminHandler backed by an in-memory database and a
// memory-backed event cache.
func newTestAdmin(t *testing.T) (*AdminHandler, *sql.DB, *scs.SessionManager) {
	t.Helper()

	db := testDB(t)
	sm := testSessionManager(t)
	renderer := testRenderer(t, sm)

	backend := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })
	events := cache.NewEventCache(backend, store.New(db), time.Minute)

	return NewAdminHandler(db, renderer, events), db, sm
}

// adminRequest builds a request with a loaded session and an admin user in
// context, as the admin middleware chain would.
func adminRequest(t *testing.T, db *sql.DB, sm *scs.SessionManager, method, target string, form url.Values) *http.Request {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req = requestWithSession(sm, req)

	admin := createTestUser(t, db, testUser{
		Email: fmt.Sprintf("admin-%d@example.com", time.Now().UnixNano()),
		Name:  "Ada",
		Role:  model.RoleAdmin,
	})
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUser, admin)
	return req.WithContext(ctx)
}

func TestAdminHandler_Dashboard(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	createTestEvent(t, db, model.Event{
		Slug:     "one",
		Title:    "One",
		Date:     time.Now(),
		Location: "Here",
	})

	req := adminRequest(t, db, sm, http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()

	h.Dashboard(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()
	assertStatus(t, resp.StatusCode, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Dashboard") {
		t.Error("dashboard page missing heading")
	}
	// The memory backend tracks stats, so the cache card must render
	if !strings.Contains(string(body), "Cache hit rate") {
		t.Error("dashboard page missing cache statistics card")
	}
}

func TestAdminHandler_EventsList_IncludesDrafts(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	createTestEvent(t, db, model.Event{
		Slug:     "draft-event",
		Title:    "Draft Event",
		Date:     time.Now(),
		Location: "Here",
		Status:   model.EventStatusDraft,
	})

	req := adminRequest(t, db, sm, http.MethodGet, "/admin/events", nil)
	w := httptest.NewRecorder()

	h.EventsList(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()
	assertStatus(t, resp.StatusCode, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Draft Event") {
		t.Error("admin event list missing draft event")
	}
}

func TestAdminHandler_EventCreate(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	form := url.Values{}
	form.Set("title", "Spring Gala")
	form.Set("date", "2027-04-10")
	form.Set("location", "City Hall")
	form.Set("description", "A *fancy* evening.")
	form.Set("status", model.EventStatusPublished)

	req := adminRequest(t, db, sm, http.MethodPost, "/admin/events", form)
	w := httptest.NewRecorder()

	h.EventCreate(w, req)

	assertStatus(t, w.Code, http.StatusSeeOther)

	event, err := store.New(db).GetEventBySlug(context.Background(), "spring-gala")
	if err != nil {
		t.Fatalf("created event not found by slug: %v", err)
	}
	if event.Title != "Spring Gala" || event.Status != model.EventStatusPublished {
		t.Errorf("created event = %+v; want title and status from the form", event)
	}
	if n := countAuditEntries(t, db, "Event created: Spring Gala"); n != 1 {
		t.Errorf("audit entries for event creation = %d; want 1", n)
	}
}

func TestAdminHandler_EventCreate_SlugCollision(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	createTestEvent(t, db, model.Event{
		Slug:     "spring-gala",
		Title:    "Spring Gala",
		Date:     time.Now(),
		Location: "Elsewhere",
	})

	form := url.Values{}
	form.Set("title", "Spring Gala")
	form.Set("date", "2027-04-10")
	form.Set("location", "City Hall")

	req := adminRequest(t, db, sm, http.MethodPost, "/admin/events", form)
	w := httptest.NewRecorder()

	h.EventCreate(w, req)

	assertStatus(t, w.Code, http.StatusSeeOther)

	if _, err := store.New(db).GetEventBySlug(context.Background(), "spring-gala-2"); err != nil {
		t.Errorf("expected suffixed slug for colliding title: %v", err)
	}
}

func TestAdminHandler_EventCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing title", url.Values{"date": {"2027-04-10"}, "location": {"X"}}},
		{"missing location", url.Values{"title": {"T"}, "date": {"2027-04-10"}}},
		{"bad date", url.Values{"title": {"T"}, "date": {"April 10"}, "location": {"X"}}},
		{"bad status", url.Values{"title": {"T"}, "date": {"2027-04-10"}, "location": {"X"}, "status": {"live"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, db, sm := newTestAdmin(t)

			req := adminRequest(t, db, sm, http.MethodPost, "/admin/events", tt.form)
			w := httptest.NewRecorder()

			h.EventCreate(w, req)

			assertStatus(t, w.Code, http.StatusSeeOther)

			if n, err := store.New(db).CountEvents(context.Background()); err != nil || n != 0 {
				t.Errorf("events in database = %d (err %v); want 0", n, err)
			}
		})
	}
}

func TestAdminHandler_EventUpdate(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	event := createTestEvent(t, db, model.Event{
		Slug:     "old-title",
		Title:    "Old Title",
		Date:     time.Now(),
		Location: "Here",
	})

	form := url.Values{}
	form.Set("title", "New Title")
	form.Set("date", "2027-06-01")
	form.Set("location", "There")
	form.Set("status", model.EventStatusPublished)

	target := "/admin/events/" + strconv.FormatInt(event.ID, 10)
	req := adminRequest(t, db, sm, http.MethodPost, target, form)
	req = requestWithURLParams(req, map[string]string{"id": strconv.FormatInt(event.ID, 10)})
	w := httptest.NewRecorder()

	h.EventUpdate(w, req)

	assertStatus(t, w.Code, http.StatusSeeOther)

	updated, err := store.New(db).GetEventByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("failed to reload event: %v", err)
	}
	if updated.Title != "New Title" || updated.Location != "There" {
		t.Errorf("updated event = %+v; want form values", updated)
	}
	// Title change regenerates the slug
	if updated.Slug != "new-title" {
		t.Errorf("slug = %q; want new-title", updated.Slug)
	}
}

func TestAdminHandler_EventUpdate_SlugStableWhenTitleUnchanged(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	event := createTestEvent(t, db, model.Event{
		Slug:     "custom-slug",
		Title:    "Same Title",
		Date:     time.Now(),
		Location: "Here",
	})

	form := url.Values{}
	form.Set("title", "Same Title")
	form.Set("date", "2027-06-01")
	form.Set("location", "Moved")

	target := "/admin/events/" + strconv.FormatInt(event.ID, 10)
	req := adminRequest(t, db, sm, http.MethodPost, target, form)
	req = requestWithURLParams(req, map[string]string{"id": strconv.FormatInt(event.ID, 10)})
	w := httptest.NewRecorder()

	h.EventUpdate(w, req)

	updated, err := store.New(db).GetEventByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("failed to reload event: %v", err)
	}
	if updated.Slug != "custom-slug" {
		t.Errorf("slug = %q; want unchanged custom-slug", updated.Slug)
	}
}

func TestAdminHandler_EventDelete(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	event := createTestEvent(t, db, model.Event{
		Slug:     "doomed",
		Title:    "Doomed",
		Date:     time.Now(),
		Location: "Here",
	})

	target := "/admin/events/" + strconv.FormatInt(event.ID, 10) + "/delete"
	req := adminRequest(t, db, sm, http.MethodPost, target, url.Values{})
	req = requestWithURLParams(req, map[string]string{"id": strconv.FormatInt(event.ID, 10)})
	w := httptest.NewRecorder()

	h.EventDelete(w, req)

	assertStatus(t, w.Code, http.StatusSeeOther)

	if _, err := store.New(db).GetEventByID(context.Background(), event.ID); err != sql.ErrNoRows {
		t.Errorf("GetEventByID after delete = %v; want sql.ErrNoRows", err)
	}
	if n := countAuditEntries(t, db, "Event deleted: Doomed"); n != 1 {
		t.Errorf("audit entries for deletion = %d; want 1", n)
	}
}

func TestAdminHandler_EventEdit_NotFound(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	req := adminRequest(t, db, sm, http.MethodGet, "/admin/events/999", nil)
	req = requestWithURLParams(req, map[string]string{"id": "999"})
	w := httptest.NewRecorder()

	h.EventEdit(w, req)

	assertStatus(t, w.Code, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); loc != "/admin/events" {
		t.Errorf("Location = %q; want /admin/events", loc)
	}
}

func TestAdminHandler_AuditList(t *testing.T) {
	h, db, sm := newTestAdmin(t)

	queries := store.New(db)
	for i := 0; i < 3; i++ {
		if _, err := queries.CreateAuditEntry(context.Background(), store.CreateAuditEntryParams{
			Level:     model.AuditLevelInfo,
			Category:  model.AuditCategorySystem,
			Message:   fmt.Sprintf("Entry %d", i),
			Metadata:  "{}",
			CreatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("failed to create audit entry: %v", err)
		}
	}

	req := adminRequest(t, db, sm, http.MethodGet, "/admin/audit", nil)
	w := httptest.NewRecorder()

	h.AuditList(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()
	assertStatus(t, resp.StatusCode, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Entry 0") {
		t.Error("audit page missing entries")
	}
	if !strings.Contains(string(body), "3 entries") {
		t.Error("audit page missing total count")
	}
}
