// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	overallStatus := "healthy"
	statusCode := http.StatusOK
	if dbCheck.Status != "healthy" {
		overallStatus = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	status := HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks: map[string]Check{
			"database": dbCheck,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(status)
}

// Liveness handles GET /health/live requests.
// Returns 200 as long as the process is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready requests.
// Returns 200 only when the database is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if dbCheck.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "reason": dbCheck.Message})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// checkDatabase verifies database connectivity.
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{
			Status:  "unhealthy",
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	return Check{
		Status:  "healthy",
		Latency: time.Since(start).Round(time.Microsecond).String(),
	}
}
