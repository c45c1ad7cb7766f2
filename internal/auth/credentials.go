// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evently/eventline/internal/model"
)

// Credential sign-in rejections. Each failure mode surfaces as its own error
// so callers can audit them separately; HTTP responses should stay generic.
var (
	// ErrCredentialsRequired is returned when email or password is missing.
	ErrCredentialsRequired = errors.New("email and password are required")
	// ErrUnknownUser is returned when no user matches the email.
	ErrUnknownUser = errors.New("no user with that email")
	// ErrInvalidPassword is returned when password verification fails.
	ErrInvalidPassword = errors.New("password verification failed")
)

// UserStore looks up accounts for credential sign-in. Satisfied by
// store.Queries.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

// Authenticator verifies credential sign-ins against stored password hashes.
type Authenticator struct {
	users UserStore
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(users UserStore) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate looks up a user by exact email match and verifies the
// password. On success it returns the user; on failure it returns one of
// ErrCredentialsRequired, ErrUnknownUser, or ErrInvalidPassword.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	if email == "" || password == "" {
		return model.User{}, ErrCredentialsRequired
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUnknownUser
		}
		return model.User{}, fmt.Errorf("looking up user: %w", err)
	}

	// OAuth-provisioned accounts have no password hash and cannot use
	// credential sign-in.
	if user.PasswordHash == "" {
		return model.User{}, ErrInvalidPassword
	}

	valid, err := CheckPassword(password, user.PasswordHash)
	if err != nil || !valid {
		return model.User{}, ErrInvalidPassword
	}

	return user, nil
}
