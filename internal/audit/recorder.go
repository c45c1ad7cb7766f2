// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package audit provides the audit trail: a recorder service for
// structured audit entries and a slog handler that mirrors warnings
// and errors into the audit log.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

// Recorder writes audit entries to the database.
type Recorder struct {
	queries *store.Queries
}

// NewRecorder creates a new Recorder.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{
		queries: store.New(db),
	}
}

// Record creates a new audit log entry.
func (r *Recorder) Record(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := r.queries.CreateAuditEntry(ctx, store.CreateAuditEntryParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		IPAddress: ipAddress,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to record audit entry", "error", err, "message", message)
		return err
	}

	return nil
}

// RecordAuth records an authentication-related entry.
func (r *Recorder) RecordAuth(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return r.Record(ctx, level, model.AuditCategoryAuth, message, userID, ipAddress, metadata)
}

// RecordEvent records an entry about an event listing.
func (r *Recorder) RecordEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return r.Record(ctx, level, model.AuditCategoryEvent, message, userID, ipAddress, metadata)
}

// RecordUser records a user-related entry.
func (r *Recorder) RecordUser(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return r.Record(ctx, level, model.AuditCategoryUser, message, userID, ipAddress, metadata)
}

// RecordSystem records a system-related entry.
func (r *Recorder) RecordSystem(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return r.Record(ctx, level, model.AuditCategorySystem, message, userID, ipAddress, metadata)
}
