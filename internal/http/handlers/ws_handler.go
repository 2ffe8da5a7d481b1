// WebSocket upgrade handler.
//
// This file exposes GET /ws, the entry point of the chat relay. The upgrade
// is authenticated before any frame is exchanged: the session token comes
// either from the "token" query parameter (browser WebSocket clients cannot
// set headers) or from a standard Authorization bearer header.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/elianaAbay/Spotify-Matcher/internal/http/middleware"
	"github.com/elianaAbay/Spotify-Matcher/internal/token"
)

// ConnectionRegistrar hands an upgraded, authenticated connection to the
// relay hub, implemented by ws.Hub.
type ConnectionRegistrar interface {
	Attach(conn *websocket.Conn, claims *token.Claims)
}

// WSHandler authenticates and upgrades relay connections.
type WSHandler struct {
	hub      ConnectionRegistrar
	verifier middleware.TokenVerifier
	upgrader websocket.Upgrader
}

// NewWSHandler constructs a WSHandler. allowedOrigins bounds the browser
// origins accepted on upgrade; "*" accepts any, and requests without an
// Origin header (non-browser clients) are always accepted.
func NewWSHandler(hub ConnectionRegistrar, verifier middleware.TokenVerifier, allowedOrigins []string) *WSHandler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return &WSHandler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				_, ok := allowed[strings.TrimRight(origin, "/")]
				return ok
			},
		},
	}
}

// Serve godoc
// @ID          wsConnect
// @Summary     Open the chat relay connection
// @Description Upgrades to WebSocket after verifying the session token ("token" query param or bearer header).
// @Tags        Chats
//
// @Param       token  query  string  false  "Session token (alternative to the Authorization header)"
//
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Router      /ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		if header := c.GetHeader("Authorization"); header != "" {
			if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				raw = strings.TrimSpace(parts[1])
			}
		}
	}
	if raw == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}

	claims, err := h.verifier.Verify(raw)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("ws upgrade rejected: invalid token")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	h.hub.Attach(conn, claims)
}
