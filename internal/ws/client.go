package ws

import (
	"github.com/gorilla/websocket"

	"github.com/elianaAbay/Spotify-Matcher/internal/token"
)

// maxFrameBytes bounds inbound frames; chat messages are short text.
const maxFrameBytes = 8 << 10

// Client mediates between one WebSocket connection and the Hub. Claims are
// the verified session claims of the connection's user, attached at upgrade
// time; every connection is authenticated before it reaches the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	claims *token.Claims

	// send buffers outbound frames. The hub enqueues non-blocking; a full
	// buffer drops the frame (at-most-once delivery).
	send chan []byte
}

// SpotifyID returns the authenticated user's external id.
func (c *Client) SpotifyID() string { return c.claims.SpotifyID }

// detach hands the client back to the hub. After the hub has shut down nobody
// drains unregister anymore, so the send is raced against the done signal.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// readPump reads frames from the connection and forwards decoded envelopes to
// the hub. It unregisters the client on any read error (which covers normal
// closes and dropped connections) and exits when the hub shuts down.
func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameBytes)

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		select {
		case c.hub.inbound <- &clientEvent{client: c, env: env}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump drains the send channel into the connection. The hub closes the
// channel on unregister, which terminates the loop.
func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// enqueue offers a frame to the client without blocking the hub loop.
// It reports whether the frame was accepted.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// sendError reports a per-connection failure (malformed payload, denied join)
// without tearing the connection down.
func (c *Client) sendError(msg string) {
	c.enqueue(encode(EventError, ErrorPayload{Message: msg}))
}
