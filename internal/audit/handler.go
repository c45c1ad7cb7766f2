// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package audit

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

// LogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the audit log database.
type LogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // Minimum level to forward to the audit log (default: WARN)
}

// NewLogHandler creates a new LogHandler that wraps the given handler.
// Logs at WARN level and above will be written to both the wrapped handler
// and the audit log.
func NewLogHandler(inner slog.Handler, db *sql.DB) *LogHandler {
	return &LogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToAuditLog(ctx, r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToAuditLog writes a log record to the audit log database.
func (h *LogHandler) writeToAuditLog(ctx context.Context, r slog.Record) {
	level := h.slogLevelToAuditLevel(r.Level)
	category := h.extractCategory(r)
	metadata := h.extractMetadata(r, middleware.GetRequestPath(ctx))

	// Use a background context so the entry is written even if the
	// request context has been cancelled.
	_, _ = h.queries.CreateAuditEntry(context.Background(), store.CreateAuditEntryParams{
		Level:     level,
		Category:  category,
		Message:   r.Message,
		UserID:    sql.NullInt64{}, // No user context available from slog
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

// slogLevelToAuditLevel converts a slog.Level to an audit log level.
func (h *LogHandler) slogLevelToAuditLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.AuditLevelError
	case level >= slog.LevelWarn:
		return model.AuditLevelWarning
	default:
		return model.AuditLevelInfo
	}
}

// extractCategory attempts to extract a category from the log record attributes.
// It looks for a "category" attribute or infers from common patterns.
func (h *LogHandler) extractCategory(r slog.Record) string {
	var category string

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false // Stop iteration
		}
		return true
	})

	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "session"):
		return model.AuditCategoryAuth
	case strings.Contains(msg, "event"):
		return model.AuditCategoryEvent
	case strings.Contains(msg, "user"):
		return model.AuditCategoryUser
	case strings.Contains(msg, "cache"):
		return model.AuditCategoryCache
	default:
		return model.AuditCategorySystem
	}
}

// extractMetadata collects all log attributes into a JSON string.
// If the record was logged with a request context, the request path
// is included under the "path" key.
func (h *LogHandler) extractMetadata(r slog.Record, path string) string {
	if r.NumAttrs() == 0 && path == "" {
		return "{}"
	}

	var sb strings.Builder
	sb.WriteString("{")
	first := true
	if path != "" {
		sb.WriteString(`"path":"`)
		sb.WriteString(escapeJSON(path))
		sb.WriteString(`"`)
		first = false
	}

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			return true // Skip category, already extracted
		}
		if !first {
			sb.WriteString(",")
		}
		first = false
		sb.WriteString(`"`)
		sb.WriteString(escapeJSON(a.Key))
		sb.WriteString(`":"`)
		sb.WriteString(escapeJSON(a.Value.String()))
		sb.WriteString(`"`)
		return true
	})

	sb.WriteString("}")
	return sb.String()
}

// escapeJSON escapes special characters in a string for JSON.
func escapeJSON(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
