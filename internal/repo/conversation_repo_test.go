package repo

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
)

func TestFindOrCreateConversation_CreatesNormalizedPair(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	ctx := context.Background()

	c, err := FindOrCreateConversation(ctx, db, "zoe", "adam")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	if c.ID == "" {
		t.Fatalf("missing id: %+v", c)
	}
	if c.ParticipantLo != "adam" || c.ParticipantHi != "zoe" {
		t.Fatalf("pair not normalized: %+v", c)
	}
}

func TestFindOrCreateConversation_IdempotentAcrossArgumentOrder(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	ctx := context.Background()

	first, err := FindOrCreateConversation(ctx, db, "alice", "bob")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := FindOrCreateConversation(ctx, db, "bob", "alice")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same conversation for both orders: %q vs %q", first.ID, second.ID)
	}

	var n int64
	if err := db.Model(&domain.Conversation{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected a single conversation per pair, got %d", n)
	}
}

func TestFindOrCreateConversation_LosingInsertFallsBackToWinner(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	ctx := context.Background()

	// Simulate a lost race: a row for the pair appears between the lookup and
	// the insert by inserting it directly, then inserting a duplicate via a
	// raw Create to confirm the unique index holds.
	winner := domain.Conversation{ID: "conv-w", ParticipantLo: "a", ParticipantHi: "b", CreatedAt: time.Now().UTC()}
	if err := db.Create(&winner).Error; err != nil {
		t.Fatalf("seed winner: %v", err)
	}
	dup := domain.Conversation{ID: "conv-l", ParticipantLo: "a", ParticipantHi: "b", CreatedAt: time.Now().UTC()}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("unique pair index did not reject the duplicate")
	}

	// The public entry point must hand back the winner's row.
	got, err := FindOrCreateConversation(ctx, db, "b", "a")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	if got.ID != "conv-w" {
		t.Fatalf("expected the existing conversation, got %q", got.ID)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	if _, err := GetConversation(context.Background(), db, "missing"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAppendMessage_SetsServerTimestamp(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	ctx := context.Background()

	conv, err := FindOrCreateConversation(ctx, db, "a", "b")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	start := time.Now().UTC().Add(-time.Minute)
	m, err := AppendMessage(ctx, db, conv.ID, "a", "hello there")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.ID == "" || m.ConversationID != conv.ID || m.SenderID != "a" || m.Body != "hello there" {
		t.Fatalf("unexpected message fields: %+v", m)
	}
	if m.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", m.CreatedAt)
	}
}

func TestListMessagesPage_AppendOrderAndPaging(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	ctx := context.Background()

	conv, err := FindOrCreateConversation(ctx, db, "a", "b")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	// Seed with explicit timestamps so append order is deterministic.
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, body := range []string{"m1", "m2", "m3", "m4"} {
		m := domain.Message{
			ID:             body,
			ConversationID: conv.ID,
			SenderID:       "a",
			Body:           body,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed %s: %v", body, err)
		}
	}

	total, err := CountMessages(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 messages, got %d", total)
	}

	page, err := ListMessagesPage(ctx, db, conv.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page) != 2 || page[0].Body != "m2" || page[1].Body != "m3" {
		t.Fatalf("unexpected page contents: %+v", page)
	}
}

func TestCountMessages_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	if _, err := CountMessages(context.Background(), db, "c1"); err == nil {
		t.Fatalf("expected error counting without table")
	}
}

func TestConversationStats_EmptyAndPopulated(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{}, &domain.Message{})
	ctx := context.Background()

	conv, err := FindOrCreateConversation(ctx, db, "a", "b")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	count, maxTS, err := ConversationStats(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("stats (empty): %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected zero stats, got count=%d maxTS=%v", count, maxTS)
	}

	if _, err := AppendMessage(ctx, db, conv.ID, "a", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	count, maxTS, err = ConversationStats(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("stats (populated): %v", err)
	}
	if count != 1 || maxTS == nil {
		t.Fatalf("expected count=1 with timestamp, got count=%d maxTS=%v", count, maxTS)
	}
}
