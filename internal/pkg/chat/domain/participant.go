package chat

import (
	"errors"
	"time"
)

// ErrNotParticipant rejects joining a conversation the user is not part of.
var ErrNotParticipant = errors.New("chat: user is not a participant in the conversation")

// Participant captures membership of a user in a conversation.
// Primary key: (ConversationID, UserID). Registration is an upsert-if-absent:
// re-registering an existing pair is a no-op, which keeps repeated sends safe.
type Participant struct {
	ConversationID string    `db:"conversation_id"`
	UserID         string    `db:"user_id"`
	JoinedAt       time.Time `db:"joined_at"`
}

// ConversationSummary is one Conversation Directory row: the latest state of a
// single conversation from one user's point of view.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	PeerID         string    `json:"peer_id"`
	PeerName       string    `json:"peer_name"`
	PeerImageURL   string    `json:"peer_image_url"`
	LastMessage    string    `json:"last_message"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

// EmptyConversationPreview is the sentinel preview for a conversation that has
// membership rows but no messages yet. Callers must not render a relative time
// alongside it (LastMessageAt stays zero).
const EmptyConversationPreview = "No messages yet"
