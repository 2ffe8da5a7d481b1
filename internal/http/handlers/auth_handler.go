// Authentication HTTP handlers.
//
// This file exposes the two public endpoints of the OAuth flow:
//   - GET /login     (redirect to the Spotify authorize page)
//   - GET /callback  (exchange the code, store the profile, hand out a token)
//
// Neither endpoint requires a session token; everything else under /api does.
package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/elianaAbay/Spotify-Matcher/internal/http/middleware"
	"github.com/elianaAbay/Spotify-Matcher/internal/services"
)

// Login godoc
// @ID          login
// @Summary     Start the Spotify login flow
// @Description Redirects the browser to Spotify's authorization page.
// @Tags        Auth
//
// @Success     302  {string}  string  "Redirect to Spotify"
// @Router      /login [get]
func (h *Handlers) Login(c *gin.Context) {
	c.Redirect(http.StatusFound, h.authURL.LoginURL())
}

// Callback godoc
// @ID          loginCallback
// @Summary     Complete the Spotify login flow
// @Description Exchanges the authorization code, stores the user's profile and
// @Description top artists, and redirects to the frontend with a session token.
// @Tags        Auth
//
// @Param       code  query  string  true  "Authorization code from Spotify"
//
// @Success     302  {string}  string  "Redirect to the frontend with ?token=..."
// @Failure     400  {object}  handlers.ErrorResponse  "Missing authorization code"
// @Failure     500  {object}  handlers.ErrorResponse  "Login could not be completed"
// @Router      /callback [get]
func (h *Handlers) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "authorization code required")
		return
	}

	tok, err := h.loginSvc.Complete(c.Request.Context(), code)
	if err != nil {
		// The detailed cause goes to the log only; clients get a generic body.
		middleware.LoggerFrom(c).Error().Err(err).Msg("login flow failed")
		if errors.Is(err, services.ErrUpstream) {
			fail(c, http.StatusInternalServerError, ErrCodeUpstreamFailed, "login could not be completed")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "login could not be completed")
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/?token="+url.QueryEscape(tok))
}
