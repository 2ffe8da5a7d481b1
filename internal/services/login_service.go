// Package services – LoginService
//
// This file implements the server side of the OAuth callback: exchange the
// authorization code, fetch the user's profile and top artists from Spotify,
// upsert the stored Profile (full replacement, last write wins), and issue a
// session token. Any upstream failure aborts the whole login; no partial
// profile state is written before all three Spotify calls have succeeded.
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
	"github.com/elianaAbay/Spotify-Matcher/internal/spotify"
	"github.com/elianaAbay/Spotify-Matcher/internal/sysutil"
)

// SpotifyClient is the third-party surface consumed during login.
type SpotifyClient interface {
	// ExchangeCode swaps an authorization code for credentials.
	ExchangeCode(ctx context.Context, code string) (*spotify.TokenResponse, error)
	// Profile fetches the authenticated user's profile.
	Profile(ctx context.Context, accessToken string) (*spotify.UserProfile, error)
	// TopArtists fetches the user's ranked top-artist names.
	TopArtists(ctx context.Context, accessToken string) ([]string, error)
}

// SessionIssuer issues session tokens after a completed login.
type SessionIssuer interface {
	Issue(userID, spotifyID string) (string, error)
}

// LoginRepo is the persistence contract required by LoginService.
type LoginRepo interface {
	// UpsertProfile creates or fully replaces a profile keyed by Spotify id.
	UpsertProfile(ctx context.Context, db *gorm.DB, spotifyID, displayName string, topArtists []string, accessToken, refreshToken string) (*domain.Profile, error)
}

// LoginService completes the third-party login flow.
type LoginService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the profile repository used by this service.
	Repo LoginRepo
	// Spotify performs the upstream OAuth and API calls.
	Spotify SpotifyClient
	// Tokens issues session credentials.
	Tokens SessionIssuer
}

// NewLoginService constructs a LoginService.
func NewLoginService(db *gorm.DB, r LoginRepo, sp SpotifyClient, tokens SessionIssuer) *LoginService {
	return &LoginService{DB: db, Repo: r, Spotify: sp, Tokens: tokens}
}

// Complete runs the callback flow for an authorization code and returns the
// issued session token. Upstream failures are wrapped in ErrUpstream so the
// handler can answer with a generic 500 while the cause reaches the log.
func (s *LoginService) Complete(ctx context.Context, code string) (string, error) {
	creds, err := s.Spotify.ExchangeCode(ctx, code)
	if err != nil {
		return "", errors.Join(ErrUpstream, fmt.Errorf("exchange code: %w", err))
	}

	profile, err := s.Spotify.Profile(ctx, creds.AccessToken)
	if err != nil {
		return "", errors.Join(ErrUpstream, fmt.Errorf("fetch profile: %w", err))
	}

	artists, err := s.Spotify.TopArtists(ctx, creds.AccessToken)
	if err != nil {
		return "", errors.Join(ErrUpstream, fmt.Errorf("fetch top artists: %w", err))
	}

	// Spotify allows empty display names; fall back to the account id.
	displayName := sysutil.FirstNonEmpty(profile.DisplayName, profile.ID)

	stored, err := s.Repo.UpsertProfile(ctx, s.DB, profile.ID, displayName, artists, creds.AccessToken, creds.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("upsert profile: %w", err)
	}

	return s.Tokens.Issue(stored.ID, stored.SpotifyID)
}
