// Package token issues and verifies the short-lived session credential handed
// to clients after a successful Spotify login. Tokens are HS256-signed JWTs
// carrying the profile's internal and external identifiers; they expire after
// a fixed TTL and are never revoked server-side.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, malformed encoding, wrong signing method, or expiry.
// Callers surface all of these as the same authentication failure; the
// underlying cause is only for logs.
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the session token claims. UserID is the profile's internal UUID,
// SpotifyID its external identifier.
type Claims struct {
	UserID    string `json:"user_id"`
	SpotifyID string `json:"spotify_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a shared secret.
type Issuer struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// TTL is the token lifetime (1 hour per product behavior).
	TTL time.Duration

	// now is a test seam for clock control.
	now func() time.Time
}

// NewIssuer constructs an Issuer with the given secret and TTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{Secret: []byte(secret), TTL: ttl, now: time.Now}
}

// Issue creates a signed token for the given subject identifiers.
func (i *Issuer) Issue(userID, spotifyID string) (string, error) {
	now := i.clock()
	claims := Claims{
		UserID:    userID,
		SpotifyID: spotifyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.Secret)
}

// Verify parses and validates a token string, returning its claims.
// Any validation failure (signature, format, expiry) yields ErrInvalidToken
// wrapped around the parser's error so logs can distinguish the cause.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.Secret, nil
	}, jwt.WithTimeFunc(i.clock), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}
