// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

const (
	keyPublishedEvents = "events:published"
	keyEventBySlug     = "events:slug:%s"
)

// EventCache provides cached access to published events.
// It reads through to the database on a miss and serializes values as JSON
// so the same code path works for both the memory and Redis backends.
type EventCache struct {
	cache   Cache
	queries *store.Queries
	ttl     time.Duration
}

// NewEventCache creates a new event cache on top of the given backend.
func NewEventCache(cache Cache, queries *store.Queries, ttl time.Duration) *EventCache {
	return &EventCache{
		cache:   cache,
		queries: queries,
		ttl:     ttl,
	}
}

// ListPublished returns all published events, ordered by date ascending.
func (c *EventCache) ListPublished(ctx context.Context) ([]model.Event, error) {
	if data, err := c.cache.Get(ctx, keyPublishedEvents); err == nil {
		var events []model.Event
		if err := json.Unmarshal(data, &events); err == nil {
			return events, nil
		}
		// Corrupt entry, drop it and fall through to the database
		_ = c.cache.Delete(ctx, keyPublishedEvents)
	}

	events, err := c.queries.ListPublishedEvents(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(events); err == nil {
		_ = c.cache.Set(ctx, keyPublishedEvents, data, c.ttl)
	}

	return events, nil
}

// GetBySlug returns a published event by slug.
// Returns sql.ErrNoRows (wrapped by the store) when no such event exists.
func (c *EventCache) GetBySlug(ctx context.Context, slug string) (model.Event, error) {
	key := fmt.Sprintf(keyEventBySlug, slug)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var event model.Event
		if err := json.Unmarshal(data, &event); err == nil {
			return event, nil
		}
		_ = c.cache.Delete(ctx, key)
	}

	event, err := c.queries.GetPublishedEventBySlug(ctx, slug)
	if err != nil {
		return model.Event{}, err
	}

	if data, err := json.Marshal(event); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}

	return event, nil
}

// Invalidate drops the cached published events list.
// Called whenever an event is created, updated, deleted or archived.
// Slug entries are dropped individually via InvalidateSlug; clearing the
// whole backend would also remove unrelated keys on a shared Redis.
func (c *EventCache) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, keyPublishedEvents)
}

// InvalidateSlug drops the cached entry for a single event slug.
func (c *EventCache) InvalidateSlug(ctx context.Context, slug string) error {
	return c.cache.Delete(ctx, fmt.Sprintf(keyEventBySlug, slug))
}

// Stats reports backend statistics when the backend tracks them.
func (c *EventCache) Stats() (Stats, bool) {
	if sp, ok := c.cache.(StatsProvider); ok {
		return sp.Stats(), true
	}
	return Stats{}, false
}

// Warm pre-loads the published events list into the cache.
func (c *EventCache) Warm(ctx context.Context) error {
	_, err := c.ListPublished(ctx)
	return err
}
