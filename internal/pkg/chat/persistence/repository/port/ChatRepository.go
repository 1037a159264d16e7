package repository

import (
	"context"

	chat "marketchat/internal/pkg/chat/domain"
)

// ChatRepository defines persistence operations for messages and membership.
// SendMessage must execute the register-sender, register-receiver and insert
// steps as one transaction so a message row can never exist without both
// participants registered against its conversation.
type ChatRepository interface {
	// SendMessage persists m atomically together with both participant
	// registrations. When m carries a dedupe key that already exists for the
	// conversation, the previously stored row is returned instead of a new one.
	// The returned message has Sender and Receiver expanded.
	SendMessage(ctx context.Context, m chat.Message) (*chat.Message, error)

	// GetMessagesByConversation returns the conversation's history oldest
	// first, sender and receiver expanded, honoring limit/offset.
	GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error)

	// LastMessage returns the newest message of the conversation with
	// relations expanded, or nil when the conversation has no messages.
	LastMessage(ctx context.Context, conversationID string) (*chat.Message, error)

	// ListParticipantIDs returns user ids registered in the conversation,
	// oldest membership first.
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)

	// IsParticipant reports whether userID is registered in the conversation.
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)
}

// UserRepository resolves participant profiles.
type UserRepository interface {
	// GetUser returns the profile with its conversation-id list expanded, or
	// (nil, nil) when no such user exists. Not-found is a valid empty state,
	// not an error.
	GetUser(ctx context.Context, id string) (*chat.User, error)
}
