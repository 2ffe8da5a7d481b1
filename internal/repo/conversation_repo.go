// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation and Message models.
//
// Conversations are keyed by their normalized participant pair under a
// composite unique index. FindOrCreateConversation relies on that index to
// make "create if absent, else return existing" atomic: when two writers race
// on the same new pair, exactly one insert succeeds and the loser re-reads
// the winner's row.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
)

// FindConversationByParticipants looks a conversation up by its unordered
// participant pair. Argument order does not matter. Returns ErrNotFound when
// no conversation exists for the pair.
func FindConversationByParticipants(ctx context.Context, db *gorm.DB, idA, idB string) (*domain.Conversation, error) {
	lo, hi := domain.NormalizePair(idA, idB)
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("participant_lo = ? AND participant_hi = ?", lo, hi).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOrCreateConversation returns the conversation for the unordered pair
// (idA, idB), creating it when absent. The unique pair index serializes
// concurrent creation: if the insert loses the race it falls back to reading
// the row the winner created.
func FindOrCreateConversation(ctx context.Context, db *gorm.DB, idA, idB string) (*domain.Conversation, error) {
	if c, err := FindConversationByParticipants(ctx, db, idA, idB); err == nil {
		return c, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	lo, hi := domain.NormalizePair(idA, idB)
	c := &domain.Conversation{
		ID:            uuid.NewString(),
		ParticipantLo: lo,
		ParticipantHi: hi,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		// Lost a concurrent insert on ux_conversation_pair; the winner's row
		// must exist now.
		if existing, lookupErr := FindConversationByParticipants(ctx, db, idA, idB); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by id, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// AppendMessage inserts a message row with a server-assigned UTC timestamp.
// Messages are only ever appended; there is no update path.
func AppendMessage(ctx context.Context, db *gorm.DB, conversationID, senderID, body string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND deleted_at IS NULL", conversationID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice of a conversation's messages in
// append order (CreatedAt ASC, ID ASC; deterministic even for messages that
// share a timestamp).
func ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ConversationStats returns aggregate metadata for a conversation's messages:
// the total number of rows and the maximum UpdatedAt timestamp among them.
// Used for weak ETag generation on the history endpoint. When the
// conversation has no messages, count is 0 and maxUpdatedAt is nil.
func ConversationStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
