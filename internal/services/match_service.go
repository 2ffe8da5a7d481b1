// Package services – MatchService
//
// This file implements the match scorer and the service wrapping it. The
// scorer is a pure function: given the requesting user's top-artist list and
// the candidate profiles, it returns the candidate sharing the most artists.
// Scoring preserves the product's original semantics exactly:
//
//   - each requester artist that appears in a candidate's list counts one
//     point, so duplicates in the requester's list multiply the score;
//   - candidates with an empty artist list are skipped entirely;
//   - the maximum wins with a strict ">" comparison, so ties go to the first
//     candidate encountered in scan order.
//
// Candidates are supplied in profile creation order, which makes the
// tie-break deterministic across invocations. Artist names are compared
// exactly after Unicode NFC normalization; no case folding is applied.
package services

import (
	"context"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
)

// NoMatchMessage is the human-readable sentinel returned when no candidate
// shares any listening history (or none exist at all).
const NoMatchMessage = "No match found. Invite your friends!"

// MatchResult is the outcome of a match computation. When Found is false the
// other fields besides Match (the sentinel message) are empty.
type MatchResult struct {
	Found           bool
	Match           string   // matched display name, or NoMatchMessage
	MatchID         string   // matched Spotify id
	MatchTopArtists []string // matched user's top artists, rank order
}

// BestMatch scans candidates for the profile sharing the most artists with
// the requester's list. It is a pure function; candidate order decides ties.
func BestMatch(requesterArtists []string, candidates []domain.Profile) MatchResult {
	normalized := make([]string, len(requesterArtists))
	for i, a := range requesterArtists {
		normalized[i] = norm.NFC.String(a)
	}

	var best *domain.Profile
	maxScore := -1
	for i := range candidates {
		cand := &candidates[i]
		if len(cand.TopArtists) == 0 {
			continue
		}
		lookup := make(map[string]struct{}, len(cand.TopArtists))
		for _, a := range cand.TopArtists {
			lookup[norm.NFC.String(a)] = struct{}{}
		}
		score := 0
		for _, a := range normalized {
			if _, ok := lookup[a]; ok {
				score++
			}
		}
		if score > maxScore {
			maxScore = score
			best = cand
		}
	}

	if best == nil {
		return MatchResult{Found: false, Match: NoMatchMessage}
	}
	return MatchResult{
		Found:           true,
		Match:           best.DisplayName,
		MatchID:         best.SpotifyID,
		MatchTopArtists: best.TopArtists,
	}
}

// ProfileRepo defines the repository contract required by MatchService.
type ProfileRepo interface {
	// GetProfile fetches a profile by internal id.
	GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error)

	// ListOtherProfiles returns all profiles except the given one, in
	// creation order.
	ListOtherProfiles(ctx context.Context, db *gorm.DB, excludingID string) ([]domain.Profile, error)
}

// MatchService computes the best-matching other profile for a user.
type MatchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the profile repository used by this service.
	Repo ProfileRepo
}

// NewMatchService constructs a MatchService.
func NewMatchService(db *gorm.DB, r ProfileRepo) *MatchService {
	return &MatchService{DB: db, Repo: r}
}

// BestMatchFor loads the acting user's profile and every other profile, then
// runs the scorer. It returns ErrProfileNotFound when the user has no stored
// profile or no stored top-artist list (callers reject with 404 before a
// match is even attempted). An empty candidate set is not an error: the
// no-match sentinel result is returned.
func (s *MatchService) BestMatchFor(ctx context.Context, userID string) (MatchResult, error) {
	p, err := s.Repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return MatchResult{}, ErrProfileNotFound
		}
		return MatchResult{}, err
	}
	if len(p.TopArtists) == 0 {
		return MatchResult{}, ErrProfileNotFound
	}

	others, err := s.Repo.ListOtherProfiles(ctx, s.DB, userID)
	if err != nil {
		return MatchResult{}, err
	}
	return BestMatch(p.TopArtists, others), nil
}

// TopArtistsFor returns the cached top-artist list for a user, from the
// stored profile (no live third-party call). ErrProfileNotFound when absent.
func (s *MatchService) TopArtistsFor(ctx context.Context, userID string) ([]string, error) {
	p, err := s.Repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p.TopArtists, nil
}
