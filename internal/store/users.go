// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides the database access layer: connection setup,
// migrations, queries, and seed data.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/evently/eventline/internal/model"
)

// Queries provides typed access to the database.
type Queries struct {
	db *sql.DB
}

// New creates a new Queries instance.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const userColumns = `id, email, password_hash, role, name, image, provider, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Image,
		&u.Provider, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	Image        string
	Provider     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, name, image, provider, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.Image, arg.Provider, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID fetches a user by ID.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by exact email match.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateUserLastLoginParams holds the fields for recording a login.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin records the last login timestamp.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`,
		arg.LastLoginAt, arg.ID)
	return err
}

// UpdateUserPasswordParams holds the fields for updating a password hash.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateUserProfileParams holds the fields refreshed from an OAuth provider.
type UpdateUserProfileParams struct {
	Name      string
	Image     string
	UpdatedAt time.Time
	ID        int64
}

// UpdateUserProfile refreshes name and image. The password hash is untouched
// so a credential account keeps working after an OAuth sign-in.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET name = ?, image = ?, updated_at = ? WHERE id = ?`,
		arg.Name, arg.Image, arg.UpdatedAt, arg.ID)
	return err
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
