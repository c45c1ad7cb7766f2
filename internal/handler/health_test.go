// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler_Health(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	assertStatus(t, w.Code, http.StatusOK)

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("status = %q; want healthy", status.Status)
	}
	if status.Checks["database"].Status != "healthy" {
		t.Errorf("database check = %q; want healthy", status.Checks["database"].Status)
	}
}

func TestHealthHandler_Health_DatabaseDown(t *testing.T) {
	db := testDB(t)
	_ = db.Close()
	h := NewHealthHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	assertStatus(t, w.Code, http.StatusServiceUnavailable)
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(testDB(t))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	h.Liveness(w, req)

	assertStatus(t, w.Code, http.StatusOK)
}

func TestHealthHandler_Readiness(t *testing.T) {
	h := NewHealthHandler(testDB(t))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()

	h.Readiness(w, req)

	assertStatus(t, w.Code, http.StatusOK)
}
