// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs background maintenance jobs.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evently/eventline/internal/audit"
	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

// Scheduler handles scheduled tasks like archiving past events.
type Scheduler struct {
	queries  *store.Queries
	events   *cache.EventCache
	recorder *audit.Recorder
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a new scheduler instance.
func New(db *sql.DB, events *cache.EventCache, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		queries:  store.New(db),
		events:   events,
		recorder: audit.NewRecorder(db),
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start begins the scheduler with an hourly job that archives past events.
// It also runs the job once immediately so a restarted server catches up.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("@hourly", func() {
		if err := s.archivePastEvents(); err != nil {
			s.logger.Error("failed to archive past events", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	go func() {
		if err := s.archivePastEvents(); err != nil {
			s.logger.Error("failed to archive past events on startup", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// archivePastEvents marks published events whose date has passed as archived
// and refreshes the event cache when anything changed.
func (s *Scheduler) archivePastEvents() error {
	ctx := context.Background()
	now := time.Now()

	// Events keep their listing for the whole calendar day of the event.
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Collect slugs before the update so their cache entries can be dropped
	// along with the published list.
	slugs, err := s.queries.ListPublishedSlugsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	archived, err := s.queries.ArchivePastEvents(ctx, cutoff, now)
	if err != nil {
		return err
	}

	if archived == 0 {
		return nil
	}

	s.logger.Info("archived past events", "count", archived)

	if s.events != nil {
		if err := s.events.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate event cache after archiving", "error", err)
		}
		for _, slug := range slugs {
			if err := s.events.InvalidateSlug(ctx, slug); err != nil {
				s.logger.Warn("failed to invalidate event cache after archiving", "slug", slug, "error", err)
			}
		}
	}

	if err := s.recorder.RecordEvent(ctx, model.AuditLevelInfo,
		"Past events archived by scheduler", nil, "", map[string]any{
			"count":  archived,
			"cutoff": cutoff.Format(time.RFC3339),
		}); err != nil {
		s.logger.Warn("failed to record archive audit entry", "error", err)
	}

	return nil
}
