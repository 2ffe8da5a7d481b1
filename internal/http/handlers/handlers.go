// Handler wiring.
//
// This file defines the service contracts consumed by the HTTP layer and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses. Business rules live in internal/services.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
	"github.com/elianaAbay/Spotify-Matcher/internal/http/middleware"
	"github.com/elianaAbay/Spotify-Matcher/internal/services"
)

//
// Service contracts (context-aware)
//

// LoginService completes the OAuth callback flow.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type LoginService interface {
	// Complete exchanges an authorization code, stores the profile, and
	// returns a signed session token.
	Complete(ctx context.Context, code string) (string, error)
}

// AuthURLProvider builds the third-party authorization URL for /login.
type AuthURLProvider interface {
	LoginURL() string
}

// MatchService computes listening-taste matches from stored profiles.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MatchService interface {
	// BestMatchFor returns the best-matching other profile for a user.
	BestMatchFor(ctx context.Context, userID string) (services.MatchResult, error)
	// TopArtistsFor returns the user's cached top-artist list.
	TopArtistsFor(ctx context.Context, userID string) ([]string, error)
}

// ChatHistoryService reads persisted conversation history.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatHistoryService interface {
	// Conversation fetches a conversation by id so the handler can check
	// participant access before doing anything else with the resource.
	Conversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// History returns a page of messages, enforcing participant access.
	History(ctx context.Context, requesterSpotifyID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for login, matching, and chat history.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	loginSvc LoginService
	authURL  AuthURLProvider
	matchSvc MatchService
	chatSvc  ChatHistoryService

	// frontendURL is where /callback redirects with the session token.
	frontendURL string
}

// New constructs a Handlers instance bound to the given services.
func New(loginSvc LoginService, authURL AuthURLProvider, matchSvc MatchService, chatSvc ChatHistoryService, frontendURL string) *Handlers {
	return &Handlers{
		loginSvc:    loginSvc,
		authURL:     authURL,
		matchSvc:    matchSvc,
		chatSvc:     chatSvc,
		frontendURL: frontendURL,
	}
}

// userID extracts the authenticated profile id set by the auth middleware.
func userID(c *gin.Context) string {
	if v, ok := c.Get(middleware.CtxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// spotifyID extracts the authenticated Spotify id set by the auth middleware.
func spotifyID(c *gin.Context) string {
	if v, ok := c.Get(middleware.CtxKeySpotifyID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
