// Package ws implements the chat relay: authenticated WebSocket connections
// grouped into per-conversation rooms, with every message persisted before it
// is broadcast to the room.
//
// Delivery is best-effort, at-most-once: there is no acknowledgment or retry
// protocol, a client that is offline misses broadcasts (the message is still
// durably stored), and a slow consumer whose send buffer is full drops the
// frame rather than backpressuring the room.
package ws

import "encoding/json"

// Wire event names. The client-facing names are part of the product's
// protocol and must not change.
const (
	// client → server
	EventJoinChat    = "join chat"
	EventChatMessage = "chat message"
	EventRequestChat = "request chat"

	// server → client
	EventChatReady = "chat ready"
	EventError     = "error"
)

// Envelope is the frame exchanged in both directions: an event name plus an
// event-specific JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinChatPayload asks to join the room of an existing conversation.
type JoinChatPayload struct {
	ChatID string `json:"chatId"`
}

// ChatMessagePayload carries an inbound chat message.
type ChatMessagePayload struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
	ChatID      string `json:"chatId,omitempty"`
}

// OutboundMessagePayload is the broadcast form of a chat message. The sender
// receives their own echo; clients deduplicate by comparing senderId.
type OutboundMessagePayload struct {
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
	ChatID   string `json:"chatId"`
}

// RequestChatPayload asks the server to resolve (or create) the conversation
// between two users.
type RequestChatPayload struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
}

// ChatReadyPayload tells the requesting connection which conversation id to
// join.
type ChatReadyPayload struct {
	ChatID string `json:"chatId"`
}

// ErrorPayload reports a rejected or malformed event back to one connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encode marshals an envelope; marshal errors cannot happen for the payload
// types above, so the error is swallowed after a best-effort fallback.
func encode(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	b, _ := json.Marshal(Envelope{Event: event, Data: data})
	return b
}
