package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
	"github.com/elianaAbay/Spotify-Matcher/internal/services"
	"github.com/elianaAbay/Spotify-Matcher/internal/token"
)

var (
	// wsConnections gauges the number of live relay connections.
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Current number of active WebSocket connections.",
	})

	// relayedMessages counts messages persisted and broadcast by the relay.
	relayedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_relayed_total",
		Help: "Total number of chat messages persisted and broadcast.",
	})

	// persistFailures counts messages dropped because persistence failed.
	persistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_persist_failures_total",
		Help: "Total number of chat messages dropped due to persistence failures.",
	})
)

func init() {
	prometheus.MustRegister(wsConnections, relayedMessages, persistFailures)
}

// ChatProvider is the durable side of the relay, implemented by
// services.ChatService.
type ChatProvider interface {
	// RequestConversation resolves or creates the conversation for a pair.
	RequestConversation(ctx context.Context, senderID, recipientID string) (*domain.Conversation, error)
	// SendMessage persists a message and returns it with its conversation.
	SendMessage(ctx context.Context, senderID, recipientID, body string) (*domain.Message, *domain.Conversation, error)
	// Conversation fetches a conversation by id.
	Conversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
}

// clientEvent bundles a client with one decoded inbound envelope.
type clientEvent struct {
	client *Client
	env    Envelope
}

// Hub owns all room state of the relay. Rooms are keyed by conversation id
// and hold the connections that joined them; a connection may sit in several
// rooms at once. All maps are confined to the Run goroutine; registration,
// unregistration, and inbound events arrive over channels, so no locking is
// needed.
type Hub struct {
	chat ChatProvider
	log  zerolog.Logger

	rooms   map[string]map[*Client]struct{}
	joined  map[*Client]map[string]struct{}
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan *clientEvent

	// done is closed when Run returns, releasing pumps that would otherwise
	// block on the hub channels after shutdown.
	done chan struct{}
}

// NewHub constructs a Hub bound to the given chat service.
func NewHub(chat ChatProvider, log zerolog.Logger) *Hub {
	return &Hub{
		chat:       chat,
		log:        log.With().Str("component", "ws_hub").Logger(),
		rooms:      make(map[string]map[*Client]struct{}),
		joined:     make(map[*Client]map[string]struct{}),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *clientEvent),
		done:       make(chan struct{}),
	}
}

// Attach registers an upgraded, authenticated connection with the hub and
// starts its read/write pumps.
func (h *Hub) Attach(conn *websocket.Conn, claims *token.Claims) {
	c := &Client{hub: h, conn: conn, claims: claims, send: make(chan []byte, 256)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

// Run processes hub events until ctx is cancelled. It must be started once,
// before any connection is attached.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			close(h.done)
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			wsConnections.Inc()
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				wsConnections.Dec()
			}
		case ev := <-h.inbound:
			h.handle(ctx, ev)
		}
	}
}

// drop removes a client from every room and closes its send channel.
// Room membership is cleaned up implicitly on disconnect.
func (h *Hub) drop(c *Client) {
	for room := range h.joined[c] {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.joined, c)
	delete(h.clients, c)
	close(c.send)
}

// handle dispatches one inbound envelope.
func (h *Hub) handle(ctx context.Context, ev *clientEvent) {
	switch ev.env.Event {
	case EventJoinChat:
		h.handleJoin(ctx, ev)
	case EventRequestChat:
		h.handleRequestChat(ctx, ev)
	case EventChatMessage:
		h.handleChatMessage(ctx, ev)
	default:
		ev.client.sendError("unknown event: " + ev.env.Event)
	}
}

// handleJoin adds the connection to a conversation's room. Joining requires
// the authenticated user to be one of the conversation's two participants;
// knowing a conversation id is not enough. Joining twice is a no-op.
func (h *Hub) handleJoin(ctx context.Context, ev *clientEvent) {
	var p JoinChatPayload
	if err := json.Unmarshal(ev.env.Data, &p); err != nil || p.ChatID == "" {
		ev.client.sendError("invalid join payload")
		return
	}

	conv, err := h.chat.Conversation(ctx, p.ChatID)
	if err != nil {
		ev.client.sendError("chat not found")
		return
	}
	if !conv.HasParticipant(ev.client.SpotifyID()) {
		h.log.Warn().
			Str("spotify_id", ev.client.SpotifyID()).
			Str("conversation_id", p.ChatID).
			Msg("join denied: not a participant")
		ev.client.sendError("not a participant of this chat")
		return
	}

	h.joinRoom(ev.client, conv.ID)
}

// handleRequestChat resolves (or creates) the conversation between the
// authenticated user and a recipient, joins its room, and answers with
// "chat ready" so the client knows the conversation id.
func (h *Hub) handleRequestChat(ctx context.Context, ev *clientEvent) {
	var p RequestChatPayload
	if err := json.Unmarshal(ev.env.Data, &p); err != nil || p.RecipientID == "" {
		ev.client.sendError("invalid request chat payload")
		return
	}
	if p.SenderID != ev.client.SpotifyID() {
		ev.client.sendError("senderId does not match the authenticated user")
		return
	}

	conv, err := h.chat.RequestConversation(ctx, ev.client.SpotifyID(), p.RecipientID)
	if err != nil {
		h.log.Error().Err(err).
			Str("spotify_id", ev.client.SpotifyID()).
			Msg("request chat failed")
		ev.client.sendError("could not open chat")
		return
	}

	h.joinRoom(ev.client, conv.ID)
	ev.client.enqueue(encode(EventChatReady, ChatReadyPayload{ChatID: conv.ID}))
}

// handleChatMessage persists the message, then broadcasts it to every
// connection in the conversation's room, the sender's own included. A
// persistence failure is logged and suppresses the broadcast; the connection
// stays up.
func (h *Hub) handleChatMessage(ctx context.Context, ev *clientEvent) {
	var p ChatMessagePayload
	if err := json.Unmarshal(ev.env.Data, &p); err != nil || p.RecipientID == "" {
		ev.client.sendError("invalid chat message payload")
		return
	}
	if p.SenderID != ev.client.SpotifyID() {
		ev.client.sendError("senderId does not match the authenticated user")
		return
	}

	msg, conv, err := h.chat.SendMessage(ctx, ev.client.SpotifyID(), p.RecipientID, p.Message)
	if err != nil {
		// Validation rejections go back to the sender verbatim; only real
		// persistence failures feed the failure counter.
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			ev.client.sendError("message body is empty")
		case errors.Is(err, services.ErrMessageTooLong):
			ev.client.sendError("message body is too long")
		case errors.Is(err, services.ErrSelfConversation):
			ev.client.sendError("cannot message yourself")
		default:
			persistFailures.Inc()
			h.log.Error().Err(err).
				Str("spotify_id", ev.client.SpotifyID()).
				Str("conversation_id", p.ChatID).
				Msg("message not broadcast: persistence failed")
			ev.client.sendError("message could not be delivered")
		}
		return
	}

	// The sender is counted as a member of the room from their first message
	// even if they never sent an explicit join.
	h.joinRoom(ev.client, conv.ID)

	relayedMessages.Inc()
	h.broadcast(conv.ID, encode(EventChatMessage, OutboundMessagePayload{
		SenderID: msg.SenderID,
		Message:  msg.Body,
		ChatID:   conv.ID,
	}))
}

// joinRoom records room membership for a client. Idempotent.
func (h *Hub) joinRoom(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if h.joined[c] == nil {
		h.joined[c] = make(map[string]struct{})
	}
	h.joined[c][room] = struct{}{}
}

// broadcast fans a frame out to every connection in a room. Enqueueing is
// non-blocking; a client whose buffer is full simply misses the frame.
func (h *Hub) broadcast(room string, frame []byte) {
	for c := range h.rooms[room] {
		if !c.enqueue(frame) {
			h.log.Warn().
				Str("spotify_id", c.SpotifyID()).
				Str("conversation_id", room).
				Msg("send buffer full, frame dropped")
		}
	}
}
