// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ErrUnverifiedEmail is returned when the provider reports the account email
// as unverified. Unverified emails must not be matched to local accounts.
var ErrUnverifiedEmail = errors.New("provider email is not verified")

// GoogleProfile holds the identity claims fetched after an OAuth exchange.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

// GoogleProvider implements the Google OAuth authorization-code flow.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider. The redirectURL must match one
// of the redirect URIs registered in the Google Cloud console.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				goauth2.UserinfoEmailScope,
				goauth2.UserinfoProfileScope,
			},
			Endpoint: google.Endpoint,
		},
	}
}

// AuthCodeURL returns the provider authorization URL for the given state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// FetchProfile retrieves the userinfo claims for an exchanged token.
func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (GoogleProfile, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(p.config.TokenSource(ctx, token)))
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("creating userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("fetching userinfo: %w", err)
	}

	if info.Email == "" {
		return GoogleProfile{}, errors.New("provider returned no email")
	}
	if info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return GoogleProfile{}, ErrUnverifiedEmail
	}

	return GoogleProfile{
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
