// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for the protected API
// group. The middleware extracts the session token from the Authorization
// header, verifies signature and expiry, and attaches the decoded claims to
// the request context for downstream handlers.
//
// Both "no token" and "bad token" are answered with the same uniform 401
// envelope so callers cannot probe which failure occurred; the two cases are
// logged distinctly for operators.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/elianaAbay/Spotify-Matcher/internal/token"
)

const (
	// CtxKeyUserID is the Gin context key holding the authenticated profile's
	// internal id. The rate limiter keys buckets off the same value.
	CtxKeyUserID = "userID"
	// CtxKeySpotifyID is the Gin context key holding the authenticated
	// user's external Spotify id.
	CtxKeySpotifyID = "spotifyID"
	// CtxKeyClaims is the Gin context key holding the full decoded claims.
	CtxKeyClaims = "sessionClaims"
)

// TokenVerifier verifies a session token string, implemented by token.Issuer.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// RequireAuth returns a Gin middleware that rejects requests without a valid
// bearer session token.
//
// Behavior:
//   - Reads the Authorization header, expecting "Bearer <token>".
//   - Missing/malformed header → 401 ("authentication failed"), logged as
//     "missing bearer token".
//   - Invalid, tampered, or expired token → the same 401, logged with the
//     verification error.
//   - On success, stores userID / spotifyID / full claims in the context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			LoggerFrom(c).Warn().Msg("auth rejected: missing bearer token")
			unauthorized(c)
			return
		}

		claims, err := verifier.Verify(raw)
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("auth rejected: invalid or expired token")
			unauthorized(c)
			return
		}

		c.Set(CtxKeyUserID, claims.UserID)
		c.Set(CtxKeySpotifyID, claims.SpotifyID)
		c.Set(CtxKeyClaims, claims)
		c.Next()
	}
}

// ClaimsFrom returns the decoded session claims attached by RequireAuth,
// or nil when the request is unauthenticated.
func ClaimsFrom(c *gin.Context) *token.Claims {
	if v, ok := c.Get(CtxKeyClaims); ok {
		if cl, ok := v.(*token.Claims); ok {
			return cl
		}
	}
	return nil
}

// bearerToken splits an Authorization header on the Bearer scheme prefix and
// returns the raw token, or "" when the scheme is absent.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// unauthorized writes the uniform authentication-failure envelope. The
// message is deliberately identical for every failure cause.
func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    "authentication failed",
	})
}
