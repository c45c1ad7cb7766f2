// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/evently/eventline/internal/model"
)

const eventColumns = `id, slug, title, date, location, image, description, status, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Slug, &e.Title, &e.Date, &e.Location, &e.Image,
		&e.Description, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (q *Queries) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CreateEventParams holds the fields for creating an event.
type CreateEventParams struct {
	Slug        string
	Title       string
	Date        time.Time
	Location    string
	Image       string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateEvent inserts a new event and returns the created row.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (slug, title, date, location, image, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Slug, arg.Title, arg.Date, arg.Location, arg.Image, arg.Description, arg.Status,
		arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, err
	}
	return q.GetEventByID(ctx, id)
}

// GetEventByID fetches an event by ID.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventBySlug fetches an event by slug.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	return scanEvent(row)
}

// GetPublishedEventBySlug fetches a published event by slug.
func (q *Queries) GetPublishedEventBySlug(ctx context.Context, slug string) (model.Event, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = ? AND status = ?`,
		slug, model.EventStatusPublished)
	return scanEvent(row)
}

// ListEvents returns all events ordered by date, newest first. Admin use.
func (q *Queries) ListEvents(ctx context.Context) ([]model.Event, error) {
	return q.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date DESC, id DESC`)
}

// ListPublishedEvents returns published events ordered by date ascending.
func (q *Queries) ListPublishedEvents(ctx context.Context) ([]model.Event, error) {
	return q.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE status = ? ORDER BY date ASC, id ASC`,
		model.EventStatusPublished)
}

// ListUpcomingEvents returns published events dated on or after the given
// time, ordered by date ascending, limited to limit rows.
func (q *Queries) ListUpcomingEvents(ctx context.Context, from time.Time, limit int64) ([]model.Event, error) {
	return q.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE status = ? AND date >= ? ORDER BY date ASC, id ASC LIMIT ?`,
		model.EventStatusPublished, from, limit)
}

// UpdateEventParams holds the fields for updating an event.
type UpdateEventParams struct {
	Slug        string
	Title       string
	Date        time.Time
	Location    string
	Image       string
	Description string
	Status      string
	UpdatedAt   time.Time
	ID          int64
}

// UpdateEvent updates an event row.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE events SET slug = ?, title = ?, date = ?, location = ?, image = ?,
		 description = ?, status = ?, updated_at = ? WHERE id = ?`,
		arg.Slug, arg.Title, arg.Date, arg.Location, arg.Image, arg.Description, arg.Status,
		arg.UpdatedAt, arg.ID)
	return err
}

// DeleteEvent removes an event row.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// EventSlugExists reports whether a slug is already taken by another event.
func (q *Queries) EventSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count > 0, err
}

// ListPublishedSlugsBefore returns the slugs of published events dated
// before the cutoff. Used to drop per-slug cache entries before archiving.
func (q *Queries) ListPublishedSlugsBefore(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT slug FROM events WHERE status = ? AND date < ?`,
		model.EventStatusPublished, before)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// ArchivePastEvents marks published events dated before the cutoff as
// archived. Returns the number of rows changed; running it twice is a no-op.
func (q *Queries) ArchivePastEvents(ctx context.Context, before time.Time, updatedAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_at = ? WHERE status = ? AND date < ?`,
		model.EventStatusArchived, updatedAt, model.EventStatusPublished, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountEvents returns the total number of events.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}
