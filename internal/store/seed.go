package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evently/eventline/internal/auth"
	"github.com/evently/eventline/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// sampleEvents are the three sample records shipped with a fresh install.
var sampleEvents = []CreateEventParams{
	{
		Slug:        "summer-music-festival",
		Title:       "Summer Music Festival",
		Date:        time.Date(2026, time.July, 18, 0, 0, 0, 0, time.UTC),
		Location:    "Riverside Park, Austin, TX",
		Image:       "https://images.example.com/events/summer-music-festival.jpg",
		Description: "A full day of live music across three stages, with food trucks and a craft market along the river.",
	},
	{
		Slug:        "tech-innovators-conference",
		Title:       "Tech Innovators Conference",
		Date:        time.Date(2026, time.September, 9, 0, 0, 0, 0, time.UTC),
		Location:    "Moscone Center, San Francisco, CA",
		Image:       "https://images.example.com/events/tech-innovators-conference.jpg",
		Description: "Two days of talks and workshops on what's next in software, hardware, and design.",
	},
	{
		Slug:        "harvest-food-wine-fair",
		Title:       "Harvest Food & Wine Fair",
		Date:        time.Date(2026, time.October, 24, 0, 0, 0, 0, time.UTC),
		Location:    "Old Town Square, Portland, OR",
		Image:       "https://images.example.com/events/harvest-food-wine-fair.jpg",
		Description: "Local growers, winemakers, and chefs come together for a weekend of tastings and demos.",
	},
}

// Seed creates initial data: the default admin user, and the sample events
// when doSeed is true. Both are skipped if already present.
func Seed(ctx context.Context, db *sql.DB, doSeed bool) error {
	queries := New(db)

	if err := seedAdmin(ctx, queries); err != nil {
		return err
	}

	if doSeed {
		if err := seedEvents(ctx, queries); err != nil {
			return err
		}
	}

	return nil
}

func seedAdmin(ctx context.Context, queries *Queries) error {
	// Check if admin user already exists
	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	// Hash the default password
	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// Create admin user
	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultAdminEmail,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
		Name:         DefaultAdminName,
		Provider:     model.ProviderCredentials,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}

func seedEvents(ctx context.Context, queries *Queries) error {
	count, err := queries.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	if count > 0 {
		slog.Info("events already exist, skipping sample data")
		return nil
	}

	now := time.Now()
	for _, sample := range sampleEvents {
		sample.Status = model.EventStatusPublished
		sample.CreatedAt = now
		sample.UpdatedAt = now
		event, err := queries.CreateEvent(ctx, sample)
		if err != nil {
			return fmt.Errorf("creating sample event %q: %w", sample.Slug, err)
		}
		slog.Info("created sample event", "id", event.ID, "slug", event.Slug)
	}

	return nil
}
