package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evently/eventline/internal/model"
)

// testDB creates an in-memory SQLite database with the full schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'member',
			name TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT 'credentials',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);

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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newEvent(slug, status string, date time.Time) CreateEventParams {
	now := time.Now()
	return CreateEventParams{
		Slug:      slug,
		Title:     "Event " + slug,
		Date:      date,
		Location:  "Somewhere",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserCRUD(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         model.RoleMember,
		Name:         "Alice",
		Provider:     model.ProviderCredentials,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("CreateUser returned zero ID")
	}

	byEmail, err := q.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail ID = %d; want %d", byEmail.ID, user.ID)
	}

	// Lookup is exact, not a substring match
	if _, err := q.GetUserByEmail(ctx, "alice"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetUserByEmail(partial) error = %v; want sql.ErrNoRows", err)
	}

	if err := q.UpdateUserLastLogin(ctx, UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: now, Valid: true},
		ID:          user.ID,
	}); err != nil {
		t.Fatalf("UpdateUserLastLogin error: %v", err)
	}

	reloaded, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if !reloaded.LastLoginAt.Valid {
		t.Error("LastLoginAt not set after UpdateUserLastLogin")
	}

	// Profile updates must never touch the password hash
	if err := q.UpdateUserProfile(ctx, UpdateUserProfileParams{
		Name:      "Alice B",
		Image:     "https://example.com/a.png",
		UpdatedAt: time.Now(),
		ID:        user.ID,
	}); err != nil {
		t.Fatalf("UpdateUserProfile error: %v", err)
	}
	reloaded, _ = q.GetUserByID(ctx, user.ID)
	if reloaded.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q after profile update; want unchanged", reloaded.PasswordHash)
	}
	if reloaded.Name != "Alice B" {
		t.Errorf("Name = %q; want Alice B", reloaded.Name)
	}

	count, err := q.CountUsers(ctx)
	if err != nil || count != 1 {
		t.Errorf("CountUsers = %d (err %v); want 1", count, err)
	}
}

func TestEventCRUD(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	event, err := q.CreateEvent(ctx, newEvent("first", model.EventStatusPublished, time.Now()))
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}

	bySlug, err := q.GetEventBySlug(ctx, "first")
	if err != nil {
		t.Fatalf("GetEventBySlug error: %v", err)
	}
	if bySlug.ID != event.ID {
		t.Errorf("GetEventBySlug ID = %d; want %d", bySlug.ID, event.ID)
	}

	if err := q.UpdateEvent(ctx, UpdateEventParams{
		Slug:        "renamed",
		Title:       "Renamed",
		Date:        event.Date,
		Location:    event.Location,
		Image:       event.Image,
		Description: event.Description,
		Status:      model.EventStatusArchived,
		UpdatedAt:   time.Now(),
		ID:          event.ID,
	}); err != nil {
		t.Fatalf("UpdateEvent error: %v", err)
	}

	updated, err := q.GetEventByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEventByID error: %v", err)
	}
	if updated.Slug != "renamed" || updated.Status != model.EventStatusArchived {
		t.Errorf("updated event = %+v; want renamed/archived", updated)
	}

	if err := q.DeleteEvent(ctx, event.ID); err != nil {
		t.Fatalf("DeleteEvent error: %v", err)
	}
	if _, err := q.GetEventByID(ctx, event.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetEventByID after delete = %v; want sql.ErrNoRows", err)
	}
}

func TestListPublishedEvents(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	later := time.Now().AddDate(0, 1, 0)
	sooner := time.Now().AddDate(0, 0, 7)

	if _, err := q.CreateEvent(ctx, newEvent("later", model.EventStatusPublished, later)); err != nil {
		t.Fatal(err)
	}
	if _, err := q.CreateEvent(ctx, newEvent("sooner", model.EventStatusPublished, sooner)); err != nil {
		t.Fatal(err)
	}
	if _, err := q.CreateEvent(ctx, newEvent("draft", model.EventStatusDraft, sooner)); err != nil {
		t.Fatal(err)
	}

	events, err := q.ListPublishedEvents(ctx)
	if err != nil {
		t.Fatalf("ListPublishedEvents error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("published events = %d; want 2", len(events))
	}
	// Ascending by date
	if events[0].Slug != "sooner" || events[1].Slug != "later" {
		t.Errorf("order = %q, %q; want sooner, later", events[0].Slug, events[1].Slug)
	}

	// Published-only slug lookup hides the draft
	if _, err := q.GetPublishedEventBySlug(ctx, "draft"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPublishedEventBySlug(draft) error = %v; want sql.ErrNoRows", err)
	}
}

func TestListUpcomingEvents(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	cutoff := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := q.CreateEvent(ctx, newEvent("past", model.EventStatusPublished, cutoff.AddDate(0, -1, 0))); err != nil {
		t.Fatal(err)
	}
	for i, slug := range []string{"a", "b", "c", "d"} {
		if _, err := q.CreateEvent(ctx, newEvent(slug, model.EventStatusPublished, cutoff.AddDate(0, 0, i+1))); err != nil {
			t.Fatal(err)
		}
	}

	events, err := q.ListUpcomingEvents(ctx, cutoff, 3)
	if err != nil {
		t.Fatalf("ListUpcomingEvents error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("upcoming events = %d; want limit of 3", len(events))
	}
	if events[0].Slug != "a" {
		t.Errorf("first upcoming = %q; want a", events[0].Slug)
	}
}

func TestEventSlugExists(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	event, err := q.CreateEvent(ctx, newEvent("taken", model.EventStatusDraft, time.Now()))
	if err != nil {
		t.Fatal(err)
	}

	taken, err := q.EventSlugExists(ctx, "taken", 0)
	if err != nil || !taken {
		t.Errorf("EventSlugExists(taken, 0) = %v (err %v); want true", taken, err)
	}

	// The owning event is excluded so updates can keep their own slug
	taken, err = q.EventSlugExists(ctx, "taken", event.ID)
	if err != nil || taken {
		t.Errorf("EventSlugExists(taken, self) = %v (err %v); want false", taken, err)
	}

	taken, err = q.EventSlugExists(ctx, "free", 0)
	if err != nil || taken {
		t.Errorf("EventSlugExists(free, 0) = %v (err %v); want false", taken, err)
	}
}

func TestArchivePastEvents(t *testing.T) {
	q := New(testDB(t))
	ctx := context.Background()

	cutoff := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := q.CreateEvent(ctx, newEvent("old", model.EventStatusPublished, cutoff.AddDate(0, 0, -1))); err != nil {
		t.Fatal(err)
	}
	if _, err := q.CreateEvent(ctx, newEvent("today", model.EventStatusPublished, cutoff)); err != nil {
		t.Fatal(err)
	}
	if _, err := q.CreateEvent(ctx, newEvent("old-draft", model.EventStatusDraft, cutoff.AddDate(0, 0, -2))); err != nil {
		t.Fatal(err)
	}

	archived, err := q.ArchivePastEvents(ctx, cutoff, time.Now())
	if err != nil {
		t.Fatalf("ArchivePastEvents error: %v", err)
	}
	if archived != 1 {
		t.Errorf("archived = %d; want 1 (only published past events)", archived)
	}

	old, _ := q.GetEventBySlug(ctx, "old")
	if old.Status != model.EventStatusArchived {
		t.Errorf("old event status = %q; want archived", old.Status)
	}
	today, _ := q.GetEventBySlug(ctx, "today")
	if today.Status != model.EventStatusPublished {
		t.Errorf("same-day event status = %q; want still published", today.Status)
	}
}
