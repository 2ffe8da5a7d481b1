// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a profile is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertProfile creates a profile for spotifyID or fully replaces the mutable
// fields of the existing one (last write wins, matching the login flow where
// every successful authentication re-fetches the user's current data).
//
// On success, it returns the persisted Profile. On failure, it returns a DB
// error.
func UpsertProfile(ctx context.Context, db *gorm.DB, spotifyID, displayName string, topArtists []string, accessToken, refreshToken string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Where("spotify_id = ?", spotifyID).First(&p).Error
	switch {
	case err == nil:
		p.DisplayName = displayName
		p.TopArtists = domain.StringList(topArtists)
		p.AccessToken = accessToken
		p.RefreshToken = refreshToken
		if err := db.WithContext(ctx).Save(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	case err == gorm.ErrRecordNotFound:
		p = domain.Profile{
			ID:           uuid.NewString(),
			SpotifyID:    spotifyID,
			DisplayName:  displayName,
			TopArtists:   domain.StringList(topArtists),
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			CreatedAt:    time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, err
	}
}

// GetProfile fetches a profile by its internal id, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileBySpotifyID fetches a profile by its external Spotify id, or
// ErrNotFound.
func GetProfileBySpotifyID(ctx context.Context, db *gorm.DB, spotifyID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("spotify_id = ?", spotifyID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListOtherProfiles returns every profile except the one with the given
// internal id, in creation order (created_at ASC, id ASC). The fixed order
// makes the match scorer's first-encountered tie-break deterministic.
// It returns an empty slice when no other profiles exist.
func ListOtherProfiles(ctx context.Context, db *gorm.DB, excludingID string) ([]domain.Profile, error) {
	var out []domain.Profile
	err := db.WithContext(ctx).
		Where("id <> ?", excludingID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
