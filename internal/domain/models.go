// Package domain defines the persistence models for profiles, conversations,
// and messages. These types are mapped with GORM and form the core data layer
// of the matcher application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StringList is an ordered list of strings persisted as a JSON text column.
// Order and duplicates are preserved exactly as stored (the top-artist list
// keeps the service-reported rank and is intentionally not deduplicated).
type StringList []string

// Value serializes the list as JSON for storage.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes a JSON text column into the list.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return errors.New("domain: unsupported source type for StringList")
	}
}

// Profile represents one authenticated end user. Exactly one row exists per
// Spotify account; every successful login fully replaces the mutable fields
// (last write wins).
//
// Fields:
//   - ID: stable UUID primary key (char(36)), referenced by session tokens.
//   - SpotifyID: external identifier, unique across all profiles.
//   - DisplayName: Spotify display name at last login.
//   - TopArtists: ranked favorite-artist names (duplicates preserved).
//   - AccessToken / RefreshToken: cached third-party credentials.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (profiles are never deleted by the app).
type Profile struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	SpotifyID    string         `json:"spotify_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_profile_spotify"`
	DisplayName  string         `json:"display_name"  gorm:"type:varchar(255);not null"`
	TopArtists   StringList     `json:"top_artists"   gorm:"type:text;not null"`
	AccessToken  string         `json:"-"             gorm:"type:text"`
	RefreshToken string         `json:"-"             gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Conversation is the durable record of a chat between exactly two
// participants, identified by their unordered Spotify-id pair. The pair is
// stored normalized (ParticipantLo <= ParticipantHi) under a composite unique
// index so that at most one conversation can ever exist per pair and
// find-or-create is an atomic conditional insert.
//
// Fields:
//   - ID: UUID primary key (char(36)); doubles as the relay room key.
//   - ParticipantLo / ParticipantHi: normalized participant pair.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (conversations are never deleted).
type Conversation struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	ParticipantLo string         `json:"participant_lo" gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_pair,priority:1"`
	ParticipantHi string         `json:"participant_hi" gorm:"type:varchar(64);not null;uniqueIndex:ux_conversation_pair,priority:2"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// NormalizePair orders two participant identifiers so that lo <= hi. Lookups
// and inserts must always go through the normalized form, which is what makes
// pair lookup order-independent.
func NormalizePair(a, b string) (lo, hi string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether spotifyID is one of the two participants.
func (c Conversation) HasParticipant(spotifyID string) bool {
	return spotifyID == c.ParticipantLo || spotifyID == c.ParticipantHi
}

// Message is a single utterance within a conversation. Messages are appended
// with a server-assigned timestamp and are immutable once stored.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ConversationID: foreign key to the owning conversation (indexed).
//   - SenderID: Spotify id of the author.
//   - Body: full text content.
//   - CreatedAt: server-assigned append time (indexed with ConversationID).
//   - Conversation: FK association, ensures cascade delete/update.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	SenderID       string         `json:"sender_id"       gorm:"type:varchar(64);not null"`
	Body           string         `json:"body"            gorm:"type:text;not null"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conversation_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent record. Messages are cascade-deleted if
	// their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
