// Package services defines the business logic for matching, login, and chat.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrProfileNotFound indicates the acting user has no stored profile
	// (or no stored top-artist list), so matching cannot proceed.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrConversationNotFound indicates the requested conversation does not
	// exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNotParticipant is returned when a user attempts to access a
	// conversation they are not a member of.
	ErrNotParticipant = errors.New("not a participant of this conversation")

	// ErrEmptyMessage is returned when a chat message has an empty body.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrMessageTooLong is returned when a chat message body exceeds the
	// configured rune cap. Oversized bodies are rejected, never truncated.
	ErrMessageTooLong = errors.New("message body too long")

	// ErrSelfConversation is returned when a user attempts to open a
	// conversation with themselves.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")

	// ErrUpstream wraps failures of the third-party login flow (token
	// exchange, profile or top-artist fetch). Handlers map it to a generic
	// 500 while the wrapped cause goes to the server log.
	ErrUpstream = errors.New("spotify request failed")
)
