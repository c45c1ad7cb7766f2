// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusArchived  = "archived"
)

// Event represents a listed event.
type Event struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Image       string    `json:"image"`
	Description string    `json:"description"` // Markdown source
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPublished returns true if the event is visible on public surfaces.
func (e *Event) IsPublished() bool {
	return e.Status == EventStatusPublished
}

// IsPast returns true if the event date is before the given time, compared
// at date precision so an event stays current through its whole day.
func (e *Event) IsPast(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return e.Date.Before(today)
}
