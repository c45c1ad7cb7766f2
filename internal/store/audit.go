// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/evently/eventline/internal/model"
)

// CreateAuditEntryParams holds the fields for creating an audit log entry.
type CreateAuditEntryParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	IPAddress string
	CreatedAt time.Time
}

// CreateAuditEntry inserts an audit log entry.
func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) (model.AuditEntry, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO audit_log (level, category, message, user_id, metadata, ip_address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.IPAddress, arg.CreatedAt)
	if err != nil {
		return model.AuditEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.AuditEntry{}, err
	}
	return model.AuditEntry{
		ID:        id,
		Level:     arg.Level,
		Category:  arg.Category,
		Message:   arg.Message,
		UserID:    arg.UserID,
		Metadata:  arg.Metadata,
		IPAddress: arg.IPAddress,
		CreatedAt: arg.CreatedAt,
	}, nil
}

// ListAuditEntriesParams holds pagination for listing audit entries.
type ListAuditEntriesParams struct {
	Limit  int64
	Offset int64
}

// ListAuditEntries returns audit entries, newest first.
func (q *Queries) ListAuditEntries(ctx context.Context, arg ListAuditEntriesParams) ([]model.AuditEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, level, category, message, user_id, metadata, ip_address, created_at
		 FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountAuditEntries returns the total number of audit entries.
func (q *Queries) CountAuditEntries(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&count)
	return count, err
}
