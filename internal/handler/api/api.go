// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/store"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db             *sql.DB
	queries        *store.Queries
	sessionManager *scs.SessionManager
	events         *cache.EventCache
}

// NewHandler creates a new API handler.
func NewHandler(db *sql.DB, sm *scs.SessionManager, events *cache.EventCache) *Handler {
	return &Handler{
		db:             db,
		queries:        store.New(db),
		sessionManager: sm,
		events:         events,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total int64 `json:"total,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
