// Package services – ChatService
//
// This file implements the ChatService, which backs both the WebSocket relay
// and the history endpoint. It resolves conversations by unordered
// participant pair (creating them lazily), appends messages with server
// timestamps, and enforces that only a conversation's two participants may
// read its history.
//
// Service-level errors (e.g., ErrConversationNotFound, ErrNotParticipant)
// are returned for predictable cases so callers can map them to transport
// results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
)

// ConversationRepo defines the repository contract required by ChatService.
type ConversationRepo interface {
	// FindOrCreateConversation atomically resolves the conversation for an
	// unordered participant pair.
	FindOrCreateConversation(ctx context.Context, db *gorm.DB, idA, idB string) (*domain.Conversation, error)

	// GetConversation fetches a conversation by id.
	GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error)

	// AppendMessage persists a message with a server-assigned timestamp.
	AppendMessage(ctx context.Context, db *gorm.DB, conversationID, senderID, body string) (*domain.Message, error)

	// CountMessages returns the message total for pagination.
	CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error)

	// ListMessagesPage returns a page of messages in append order.
	ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error)
}

// ChatService provides conversation resolution, message persistence, and
// history reads. Broadcast fan-out is the relay's concern; this service only
// guarantees the durable side.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the conversation repository used by this service.
	Repo ConversationRepo

	// MaxBodyRunes caps message bodies by rune length; longer bodies are
	// rejected with ErrMessageTooLong.
	MaxBodyRunes int
}

// NewChatService constructs a ChatService with a default body cap.
func NewChatService(db *gorm.DB, r ConversationRepo) *ChatService {
	return &ChatService{DB: db, Repo: r, MaxBodyRunes: 2000}
}

// RequestConversation resolves (or lazily creates) the conversation between
// sender and recipient and returns it, so the caller can join its room.
// Requesting a conversation with oneself is rejected.
func (s *ChatService) RequestConversation(ctx context.Context, senderID, recipientID string) (*domain.Conversation, error) {
	if senderID == recipientID {
		return nil, ErrSelfConversation
	}
	return s.Repo.FindOrCreateConversation(ctx, s.DB, senderID, recipientID)
}

// SendMessage resolves the conversation by participant pair (creating it when
// absent), then appends the message. The persisted message and its
// conversation are returned so the relay can broadcast to the right room.
// Persistence failure returns an error and nothing is broadcast.
func (s *ChatService) SendMessage(ctx context.Context, senderID, recipientID, body string) (*domain.Message, *domain.Conversation, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, ErrEmptyMessage
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, nil, ErrMessageTooLong
	}
	if senderID == recipientID {
		return nil, nil, ErrSelfConversation
	}

	conv, err := s.Repo.FindOrCreateConversation(ctx, s.DB, senderID, recipientID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.Repo.AppendMessage(ctx, s.DB, conv.ID, senderID, body)
	if err != nil {
		return nil, nil, err
	}
	return msg, conv, nil
}

// Conversation fetches a conversation by id, mapping a missing row to
// ErrConversationNotFound.
func (s *ChatService) Conversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	conv, err := s.Repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

// History returns a page of a conversation's messages in append order, after
// verifying that requesterSpotifyID is one of the two participants.
func (s *ChatService) History(ctx context.Context, requesterSpotifyID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	conv, err := s.Conversation(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conv.HasParticipant(requesterSpotifyID) {
		return nil, 0, ErrNotParticipant
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := s.Repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}
