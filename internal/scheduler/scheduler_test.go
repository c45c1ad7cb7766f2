package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/store"
)

func setupSchedulerDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			date DATETIME NOT NULL,
			location TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			metadata TEXT NOT NULL DEFAULT '{}',
			ip_address TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew(t *testing.T) {
	db := setupSchedulerDB(t)
	logger := slog.Default()

	s := New(db, nil, logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger != logger {
		t.Error("New() scheduler has wrong logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	db := setupSchedulerDB(t)
	s := New(db, nil, slog.Default())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Stop()
}

func TestScheduler_ArchivePastEvents(t *testing.T) {
	db := setupSchedulerDB(t)
	q := store.New(db)
	ctx := context.Background()

	mkEvent := func(slug string, date time.Time, status string) {
		t.Helper()
		_, err := q.CreateEvent(ctx, store.CreateEventParams{
			Slug:      slug,
			Title:     slug,
			Date:      date,
			Location:  "Somewhere",
			Status:    status,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("CreateEvent(%s): %v", slug, err)
		}
	}

	mkEvent("past-published", time.Now().AddDate(0, 0, -7), model.EventStatusPublished)
	mkEvent("today-published", time.Now(), model.EventStatusPublished)
	mkEvent("future-published", time.Now().AddDate(0, 0, 7), model.EventStatusPublished)
	mkEvent("past-draft", time.Now().AddDate(0, 0, -7), model.EventStatusDraft)

	s := New(db, nil, slog.Default())
	if err := s.archivePastEvents(); err != nil {
		t.Fatalf("archivePastEvents: %v", err)
	}

	wantStatus := map[string]string{
		"past-published":   model.EventStatusArchived,
		"today-published":  model.EventStatusPublished,
		"future-published": model.EventStatusPublished,
		"past-draft":       model.EventStatusDraft,
	}
	for slug, want := range wantStatus {
		event, err := q.GetEventBySlug(ctx, slug)
		if err != nil {
			t.Fatalf("GetEventBySlug(%s): %v", slug, err)
		}
		if event.Status != want {
			t.Errorf("%s status = %q, want %q", slug, event.Status, want)
		}
	}

	// An audit entry is written when anything was archived
	count, err := q.CountAuditEntries(ctx)
	if err != nil {
		t.Fatalf("CountAuditEntries: %v", err)
	}
	if count != 1 {
		t.Errorf("audit entries = %d, want 1", count)
	}

	// Running again is a no-op
	if err := s.archivePastEvents(); err != nil {
		t.Fatalf("archivePastEvents (second run): %v", err)
	}
	count, err = q.CountAuditEntries(ctx)
	if err != nil {
		t.Fatalf("CountAuditEntries: %v", err)
	}
	if count != 1 {
		t.Errorf("audit entries after no-op run = %d, want 1", count)
	}
}

func TestScheduler_ArchivePastEvents_DropsSlugCacheEntries(t *testing.T) {
	db := setupSchedulerDB(t)
	q := store.New(db)
	ctx := context.Background()

	_, err := q.CreateEvent(ctx, store.CreateEventParams{
		Slug:      "past-event",
		Title:     "Past Event",
		Date:      time.Now().AddDate(0, 0, -7),
		Location:  "Somewhere",
		Status:    model.EventStatusPublished,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	backend := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = backend.Close() })
	events := cache.NewEventCache(backend, q, time.Minute)

	// Warm the per-slug entry while the event is still published
	if _, err := events.GetBySlug(ctx, "past-event"); err != nil {
		t.Fatalf("GetBySlug before archiving: %v", err)
	}

	s := New(db, events, slog.Default())
	if err := s.archivePastEvents(); err != nil {
		t.Fatalf("archivePastEvents: %v", err)
	}

	// The stale slug entry must be gone: the read now falls through to the
	// database, where the event is archived and no longer publicly visible.
	if _, err := events.GetBySlug(ctx, "past-event"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetBySlug after archiving: err = %v, want sql.ErrNoRows", err)
	}
}
