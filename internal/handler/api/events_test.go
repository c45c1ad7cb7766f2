// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
)

func TestHandler_Status(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()

	h.Status(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Data map[string]string `json:"data"`
	}
	decodeJSON(t, w, &resp)
	if resp.Data["status"] != "ok" {
		t.Errorf("status = %q; want ok", resp.Data["status"])
	}
}

func TestHandler_ListEvents(t *testing.T) {
	h, db, _ := newTestHandler(t)

	createTestEvent(t, db, model.Event{
		Slug:     "summer-fest",
		Title:    "Summer Fest",
		Date:     time.Date(2027, 7, 12, 0, 0, 0, 0, time.Local),
		Location: "Lakeside",
	})
	createTestEvent(t, db, model.Event{
		Slug:     "hidden",
		Title:    "Hidden",
		Date:     time.Date(2027, 7, 13, 0, 0, 0, 0, time.Local),
		Location: "Nowhere",
		Status:   model.EventStatusDraft,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()

	h.ListEvents(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Data []EventView `json:"data"`
		Meta Meta        `json:"meta"`
	}
	decodeJSON(t, w, &resp)

	if len(resp.Data) != 1 {
		t.Fatalf("events = %d; want 1 (drafts excluded)", len(resp.Data))
	}
	if resp.Data[0].Slug != "summer-fest" {
		t.Errorf("slug = %q; want summer-fest", resp.Data[0].Slug)
	}
	if resp.Data[0].Date != "2027-07-12" {
		t.Errorf("date = %q; want day-precision 2027-07-12", resp.Data[0].Date)
	}
	if resp.Meta.Total != 1 {
		t.Errorf("meta.total = %d; want 1", resp.Meta.Total)
	}
}

func TestHandler_GetEvent(t *testing.T) {
	h, db, _ := newTestHandler(t)

	createTestEvent(t, db, model.Event{
		Slug:        "summer-fest",
		Title:       "Summer Fest",
		Date:        time.Date(2027, 7, 12, 0, 0, 0, 0, time.Local),
		Location:    "Lakeside",
		Description: "Music by the lake.",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/summer-fest", nil)
	req = requestWithURLParams(req, map[string]string{"slug": "summer-fest"})
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Data EventView `json:"data"`
	}
	decodeJSON(t, w, &resp)
	if resp.Data.Title != "Summer Fest" || resp.Data.Description != "Music by the lake." {
		t.Errorf("event = %+v; want stored fields", resp.Data)
	}
}

func TestHandler_GetEvent_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/missing", nil)
	req = requestWithURLParams(req, map[string]string{"slug": "missing"})
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusNotFound)
	}

	var resp ErrorResponse
	decodeJSON(t, w, &resp)
	if resp.Error.Code != "not_found" {
		t.Errorf("error code = %q; want not_found", resp.Error.Code)
	}
}

func TestHandler_GetEvent_MalformedSlug(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/x", nil)
	req = requestWithURLParams(req, map[string]string{"slug": "Not A Slug!"})
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusNotFound)
	}

	var resp ErrorResponse
	decodeJSON(t, w, &resp)
	if resp.Error.Code != "not_found" {
		t.Errorf("error code = %q; want not_found", resp.Error.Code)
	}
}

func TestHandler_Me_Unauthenticated(t *testing.T) {
	h, _, sm := newTestHandler(t)

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusUnauthorized)
	}

	var resp ErrorResponse
	decodeJSON(t, w, &resp)
	if resp.Error.Code != "unauthorized" {
		t.Errorf("error code = %q; want unauthorized", resp.Error.Code)
	}
}

func TestHandler_Me_Authenticated(t *testing.T) {
	h, db, sm := newTestHandler(t)

	user := createTestUser(t, db, "member@example.com", "Morgan")

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	sm.Put(req.Context(), middleware.SessionKeyUserID, user.ID)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Data model.SessionUser `json:"data"`
	}
	decodeJSON(t, w, &resp)
	if resp.Data.ID != user.ID || resp.Data.Email != "member@example.com" {
		t.Errorf("me = %+v; want the session user", resp.Data)
	}
	if resp.Data.Name != "Morgan" {
		t.Errorf("name = %q; want Morgan", resp.Data.Name)
	}
}

func TestHandler_Me_DeletedAccount(t *testing.T) {
	h, db, sm := newTestHandler(t)

	user := createTestUser(t, db, "gone@example.com", "Ghost")
	if _, err := db.Exec(`DELETE FROM users WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	sm.Put(req.Context(), middleware.SessionKeyUserID, user.ID)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusUnauthorized)
	}
}
