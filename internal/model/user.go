// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including User, Event, and audit log structures.
package model

import (
	"database/sql"
	"time"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Auth providers a user account can originate from.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

// User represents a site user. Accounts created through OAuth sign-in have
// an empty PasswordHash and cannot use credential sign-in.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	Image        string       `json:"image,omitempty"`
	Provider     string       `json:"provider"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SessionUser is the subset of user fields exposed to API callers and
// templates for the current session.
type SessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// ToSessionUser maps a User to its session representation.
func (u *User) ToSessionUser() SessionUser {
	return SessionUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Image: u.Image,
	}
}
