// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'member',
			name TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT 'credentials',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			date DATETIME NOT NULL,
			location TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_events_slug ON events(slug);
		CREATE INDEX idx_events_status ON events(status);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// newTestHandler builds an API handler with a memory-backed event cache.
func newTestHandler(t *testing.T) (*Handler, *sql.DB, *scs.SessionManager) {
	t.Helper()

	db := testDB(t)
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour

	backend := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })
	events := cache.NewEventCache(backend, store.New(db), time.Minute)

	return NewHandler(db, sm, events), db, sm
}

// createTestEvent inserts an event directly.
func createTestEvent(t *testing.T, db *sql.DB, event model.Event) model.Event {
	t.Helper()

	if event.Status == "" {
		event.Status = model.EventStatusPublished
	}

	created, err := store.New(db).CreateEvent(context.Background(), store.CreateEventParams{
		Slug:        event.Slug,
		Title:       event.Title,
		Date:        event.Date,
		Location:    event.Location,
		Image:       event.Image,
		Description: event.Description,
		Status:      event.Status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return created
}

// createTestUser inserts a user directly.
func createTestUser(t *testing.T, db *sql.DB, email, name string) model.User {
	t.Helper()

	created, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:     email,
		Role:      model.RoleMember,
		Name:      name,
		Provider:  model.ProviderCredentials,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return created
}

// requestWithSession wraps a request with a loaded (empty) session context.
func requestWithSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeJSON decodes a response body into v.
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
