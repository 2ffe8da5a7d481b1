// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. Failures
// always use the same JSON envelope so clients can branch on a stable `code`
// instead of parsing messages:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "profile not found"
//	}
//
// Success bodies are endpoint-specific DTOs written through ok(), e.g.
//
//	HTTP/1.1 200 OK
//	{ "match": "Jane", "matchId": "spotify:jane", "matchTopArtists": ["Muse"] }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elianaAbay/Spotify-Matcher/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints. RequestID
// echoes the X-Request-ID header so a client error can be matched to server
// logs; Code is one of the stable constants in errors.go; Message is safe to
// show to users.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"profile not found"`
}

// fail aborts the request with the standard error envelope. Server-side
// failures (5xx) are additionally logged with the request-scoped logger;
// client errors are left to the access log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for callers outside the package, such
// as the router's NoRoute and NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
