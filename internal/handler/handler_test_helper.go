package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/evently/eventline/internal/auth"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/render"
	"github.com/evently/eventline/internal/store"
	"github.com/evently/eventline/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
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
		CREATE INDEX idx_users_email ON users(email);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX idx_sessions_expiry ON sessions(expiry);

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
		CREATE INDEX idx_events_slug ON events(slug);
		CREATE INDEX idx_events_status ON events(status);
		CREATE INDEX idx_events_date ON events(date);

		CREATE TABLE audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			metadata TEXT NOT NULL DEFAULT '{}',
			ip_address TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		);
		CREATE INDEX idx_audit_log_category ON audit_log(category);
		CREATE INDEX idx_audit_log_created_at ON audit_log(created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer from the embedded templates so handler
// tests exercise the real pages.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	r, err := render.New(render.Config{
		TemplatesFS:    web.Templates(),
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

// testUser is a test user for testing.
type testUser struct {
	Email    string
	Name     string
	Role     string
	Password string
	Provider string
}

// createTestUser creates a test user in the database. When Password is set
// it is hashed with the real argon2id parameters so login tests can verify it.
func createTestUser(t *testing.T, db *sql.DB, user testUser) model.User {
	t.Helper()

	var passwordHash string
	if user.Password != "" {
		var err error
		if passwordHash, err = auth.HashPassword(user.Password); err != nil {
			t.Fatalf("failed to hash test password: %v", err)
		}
	}
	if user.Role == "" {
		user.Role = model.RoleMember
	}
	if user.Provider == "" {
		user.Provider = model.ProviderCredentials
	}

	created, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:        user.Email,
		PasswordHash: passwordHash,
		Role:         user.Role,
		Name:         user.Name,
		Provider:     user.Provider,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return created
}

// createTestEvent creates an event in the database.
func createTestEvent(t *testing.T, db *sql.DB, event model.Event) model.Event {
	t.Helper()

	if event.Status == "" {
		event.Status = model.EventStatusPublished
	}

	created, err := store.New(db).CreateEvent(context.Background(), store.CreateEventParams{
		Slug:        event.Slug,
		Title:       event.Title,
		Date:        event.Date,
		Location:    event.Location,
		Image:       event.Image,
		Description: event.Description,
		Status:      event.Status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return created
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession wraps a request with session context.
func requestWithSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// countAuditEntries returns how many audit entries match a message.
func countAuditEntries(t *testing.T, db *sql.DB, message string) int {
	t.Helper()

	var count int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM audit_log WHERE message = ?`, message,
	).Scan(&count); err != nil {
		t.Fatalf("failed to count audit entries: %v", err)
	}
	return count
}
