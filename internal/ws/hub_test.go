package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
	"github.com/elianaAbay/Spotify-Matcher/internal/services"
	"github.com/elianaAbay/Spotify-Matcher/internal/token"
)

// ----- Fake chat service -----

type fakeChat struct {
	conv    *domain.Conversation
	convErr error
	sendErr error

	sentBodies []string
}

func (f *fakeChat) RequestConversation(ctx context.Context, senderID, recipientID string) (*domain.Conversation, error) {
	if f.convErr != nil {
		return nil, f.convErr
	}
	return f.conversation(senderID, recipientID), nil
}

func (f *fakeChat) SendMessage(ctx context.Context, senderID, recipientID, body string) (*domain.Message, *domain.Conversation, error) {
	if f.sendErr != nil {
		return nil, nil, f.sendErr
	}
	conv := f.conversation(senderID, recipientID)
	f.sentBodies = append(f.sentBodies, body)
	return &domain.Message{ID: "m1", ConversationID: conv.ID, SenderID: senderID, Body: body}, conv, nil
}

func (f *fakeChat) Conversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	if f.convErr != nil {
		return nil, f.convErr
	}
	if f.conv != nil && f.conv.ID == conversationID {
		return f.conv, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeChat) conversation(a, b string) *domain.Conversation {
	if f.conv == nil {
		lo, hi := domain.NormalizePair(a, b)
		f.conv = &domain.Conversation{ID: "conv-1", ParticipantLo: lo, ParticipantHi: hi}
	}
	return f.conv
}

// ----- Helpers -----

func newTestHub(t *testing.T, chat ChatProvider) *Hub {
	t.Helper()
	h := NewHub(chat, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func newTestClient(h *Hub, spotifyID string) *Client {
	c := &Client{
		hub:    h,
		claims: &token.Claims{UserID: spotifyID, SpotifyID: spotifyID},
		send:   make(chan []byte, 16),
	}
	h.register <- c
	return c
}

func deliver(h *Hub, c *Client, event string, payload any) {
	data, _ := json.Marshal(payload)
	h.inbound <- &clientEvent{client: c, env: Envelope{Event: event, Data: data}}
}

func recvFrame(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame")
		return Envelope{}
	}
}

func expectNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

// ----- Tests -----

func TestRequestChat_AnswersChatReadyAndJoinsRoom(t *testing.T) {
	h := newTestHub(t, &fakeChat{})
	alice := newTestClient(h, "alice")

	deliver(h, alice, EventRequestChat, RequestChatPayload{SenderID: "alice", RecipientID: "bob"})

	env := recvFrame(t, alice)
	if env.Event != EventChatReady {
		t.Fatalf("expected %q, got %q", EventChatReady, env.Event)
	}
	var p ChatReadyPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.ChatID != "conv-1" {
		t.Fatalf("unexpected chat ready payload: %s", env.Data)
	}
}

func TestRequestChat_RejectsSpoofedSender(t *testing.T) {
	h := newTestHub(t, &fakeChat{})
	mallory := newTestClient(h, "mallory")

	deliver(h, mallory, EventRequestChat, RequestChatPayload{SenderID: "alice", RecipientID: "bob"})

	env := recvFrame(t, mallory)
	if env.Event != EventError {
		t.Fatalf("expected error frame, got %q", env.Event)
	}
}

func TestJoin_ParticipantOnly(t *testing.T) {
	chat := &fakeChat{conv: &domain.Conversation{ID: "conv-1", ParticipantLo: "alice", ParticipantHi: "bob"}}
	h := newTestHub(t, chat)
	bob := newTestClient(h, "bob")
	mallory := newTestClient(h, "mallory")

	// A participant joins silently.
	deliver(h, bob, EventJoinChat, JoinChatPayload{ChatID: "conv-1"})
	expectNoFrame(t, bob)

	// A non-participant is rejected even with a valid conversation id.
	deliver(h, mallory, EventJoinChat, JoinChatPayload{ChatID: "conv-1"})
	env := recvFrame(t, mallory)
	if env.Event != EventError {
		t.Fatalf("expected error frame, got %q", env.Event)
	}
	var p ErrorPayload
	_ = json.Unmarshal(env.Data, &p)
	if !strings.Contains(p.Message, "participant") {
		t.Fatalf("unexpected error message: %q", p.Message)
	}
}

func TestJoin_UnknownConversation(t *testing.T) {
	h := newTestHub(t, &fakeChat{convErr: errors.New("nope")})
	c := newTestClient(h, "alice")

	deliver(h, c, EventJoinChat, JoinChatPayload{ChatID: "ghost"})
	if env := recvFrame(t, c); env.Event != EventError {
		t.Fatalf("expected error frame, got %q", env.Event)
	}
}

func TestChatMessage_BroadcastToRoomIncludingSender(t *testing.T) {
	chat := &fakeChat{conv: &domain.Conversation{ID: "conv-1", ParticipantLo: "alice", ParticipantHi: "bob"}}
	h := newTestHub(t, chat)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	deliver(h, bob, EventJoinChat, JoinChatPayload{ChatID: "conv-1"})
	deliver(h, alice, EventChatMessage, ChatMessagePayload{SenderID: "alice", RecipientID: "bob", Message: "hey"})

	for _, c := range []*Client{alice, bob} {
		env := recvFrame(t, c)
		if env.Event != EventChatMessage {
			t.Fatalf("expected chat message, got %q", env.Event)
		}
		var p OutboundMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if p.SenderID != "alice" || p.Message != "hey" || p.ChatID != "conv-1" {
			t.Fatalf("unexpected payload: %+v", p)
		}
	}
	if len(chat.sentBodies) != 1 || chat.sentBodies[0] != "hey" {
		t.Fatalf("message not persisted before broadcast: %v", chat.sentBodies)
	}
}

func TestChatMessage_PersistFailureSuppressesBroadcast(t *testing.T) {
	chat := &fakeChat{
		conv:    &domain.Conversation{ID: "conv-1", ParticipantLo: "alice", ParticipantHi: "bob"},
		sendErr: errors.New("db down"),
	}
	h := newTestHub(t, chat)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	deliver(h, bob, EventJoinChat, JoinChatPayload{ChatID: "conv-1"})
	deliver(h, alice, EventChatMessage, ChatMessagePayload{SenderID: "alice", RecipientID: "bob", Message: "hey"})

	// The sender learns about the failure; the room hears nothing.
	if env := recvFrame(t, alice); env.Event != EventError {
		t.Fatalf("expected error frame for sender, got %q", env.Event)
	}
	expectNoFrame(t, bob)
}

func TestChatMessage_RejectedBodyReportsToSender(t *testing.T) {
	chat := &fakeChat{
		conv:    &domain.Conversation{ID: "conv-1", ParticipantLo: "alice", ParticipantHi: "bob"},
		sendErr: services.ErrMessageTooLong,
	}
	h := newTestHub(t, chat)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	deliver(h, bob, EventJoinChat, JoinChatPayload{ChatID: "conv-1"})
	deliver(h, alice, EventChatMessage, ChatMessagePayload{SenderID: "alice", RecipientID: "bob", Message: strings.Repeat("x", 10000)})

	env := recvFrame(t, alice)
	if env.Event != EventError {
		t.Fatalf("expected error frame for sender, got %q", env.Event)
	}
	var p ErrorPayload
	_ = json.Unmarshal(env.Data, &p)
	if !strings.Contains(p.Message, "too long") {
		t.Fatalf("unexpected error message: %q", p.Message)
	}
	expectNoFrame(t, bob)
}

func TestUnknownEvent_ErrorFrame(t *testing.T) {
	h := newTestHub(t, &fakeChat{})
	c := newTestClient(h, "alice")

	h.inbound <- &clientEvent{client: c, env: Envelope{Event: "dance"}}
	if env := recvFrame(t, c); env.Event != EventError {
		t.Fatalf("expected error frame, got %q", env.Event)
	}
}

func TestUnregister_LeavesRooms(t *testing.T) {
	chat := &fakeChat{conv: &domain.Conversation{ID: "conv-1", ParticipantLo: "alice", ParticipantHi: "bob"}}
	h := newTestHub(t, chat)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	deliver(h, bob, EventJoinChat, JoinChatPayload{ChatID: "conv-1"})
	h.unregister <- bob

	// After bob leaves, a broadcast reaches only alice (its own echo).
	deliver(h, alice, EventChatMessage, ChatMessagePayload{SenderID: "alice", RecipientID: "bob", Message: "anyone?"})
	if env := recvFrame(t, alice); env.Event != EventChatMessage {
		t.Fatalf("expected chat message echo, got %q", env.Event)
	}

	// bob's send channel is closed on unregister.
	select {
	case _, open := <-bob.send:
		if open {
			t.Fatalf("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("send channel not closed")
	}
}

// Shutdown must release clients that detach afterwards: once Run has swept
// the connected clients and returned, a read pump's deferred handback may no
// longer block on the unregister channel.
func TestRun_ShutdownReleasesDetachingClients(t *testing.T) {
	h := NewHub(&fakeChat{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := &Client{hub: h, claims: &token.Claims{UserID: "alice", SpotifyID: "alice"}, send: make(chan []byte, 1)}
	h.register <- c

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancellation")
	}

	// The shutdown sweep closed the client's send channel.
	select {
	case _, open := <-c.send:
		if open {
			t.Fatalf("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("send channel not closed on shutdown")
	}

	// A pump detaching after shutdown returns instead of hanging.
	detached := make(chan struct{})
	go func() {
		c.detach()
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatalf("detach blocked after hub shutdown")
	}
}

// End-to-end over a real WebSocket connection, exercising the read and write
// pumps through Attach.
func TestAttach_EndToEnd(t *testing.T) {
	h := newTestHub(t, &fakeChat{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		h.Attach(conn, &token.Claims{UserID: "alice", SpotifyID: "alice"})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(RequestChatPayload{SenderID: "alice", RecipientID: "bob"})
	if err := conn.WriteJSON(Envelope{Event: EventRequestChat, Data: req}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Event != EventChatReady {
		t.Fatalf("expected chat ready, got %q", env.Event)
	}
}
