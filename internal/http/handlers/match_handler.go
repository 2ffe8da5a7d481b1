// Match HTTP handlers.
//
// This file exposes the matching endpoints of the protected API:
//   - GET /api/match               (best match by shared top artists)
//   - GET /api/spotify/top-artists (the caller's cached top-artist list)
//
// Both endpoints serve from stored profiles only; no live Spotify call is
// made on the request path.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elianaAbay/Spotify-Matcher/internal/services"
)

// MatchResponse is the JSON body of GET /api/match. When no candidate shares
// any listening history, Match carries the sentinel message and the other
// fields are omitted.
type MatchResponse struct {
	// Match is the matched user's display name, or the no-match sentinel.
	Match string `json:"match" example:"Jane"`
	// MatchID is the matched user's Spotify id.
	MatchID string `json:"matchId,omitempty" example:"spotify:jane"`
	// MatchTopArtists is the matched user's top-artist list, rank order.
	MatchTopArtists []string `json:"matchTopArtists,omitempty"`
}

// TopArtistsResponse is the JSON body of GET /api/spotify/top-artists.
type TopArtistsResponse struct {
	Items []string `json:"items"`
}

// BestMatch godoc
// @ID          bestMatch
// @Summary     Find the best listening-taste match
// @Description Scores every other stored profile by shared top artists and returns the best one.
// @Tags        Match
// @Produce     json
//
// @Success     200  {object}  handlers.MatchResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     404  {object}  handlers.ErrorResponse  "No stored profile for the caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Security    BearerAuth
// @Router      /api/match [get]
func (h *Handlers) BestMatch(c *gin.Context) {
	res, err := h.matchSvc.BestMatchFor(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "match computation failed")
		return
	}

	if !res.Found {
		ok(c, http.StatusOK, MatchResponse{Match: res.Match})
		return
	}
	ok(c, http.StatusOK, MatchResponse{
		Match:           res.Match,
		MatchID:         res.MatchID,
		MatchTopArtists: res.MatchTopArtists,
	})
}

// TopArtists godoc
// @ID          topArtists
// @Summary     Get the caller's cached top artists
// @Description Returns the top-artist list captured at login, in rank order.
// @Tags        Match
// @Produce     json
//
// @Success     200  {object}  handlers.TopArtistsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     404  {object}  handlers.ErrorResponse  "No stored profile for the caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Security    BearerAuth
// @Router      /api/spotify/top-artists [get]
func (h *Handlers) TopArtists(c *gin.Context) {
	items, err := h.matchSvc.TopArtistsFor(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load top artists")
		return
	}
	if items == nil {
		items = []string{}
	}
	ok(c, http.StatusOK, TopArtistsResponse{Items: items})
}
