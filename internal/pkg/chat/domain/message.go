package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Domain-level errors for chat behaviors
var (
	ErrEmptyMessage        = errors.New("chat: empty message body")
	ErrMissingParticipant  = errors.New("chat: sender_id and receiver_id are required")
	ErrMissingConversation = errors.New("chat: conversation_id is required")
)

// Message is an immutable log entry in a conversation between two participants.
// Sender and Receiver are hydrated relations; nil unless the reader expanded them.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	ReceiverID     string    `db:"receiver_id"`
	Body           string    `db:"body"`
	DedupeKey      *string   `db:"dedupe_key"`
	CreatedAt      time.Time `db:"created_at"`

	Sender   *User `db:"-"`
	Receiver *User `db:"-"`
}

// NewMessage validates and normalizes an outgoing message. The ID is minted as a
// ULID so ids sort in creation order; CreatedAt defaults to now.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" {
		return nil, ErrMissingConversation
	}
	if m.SenderID == "" || m.ReceiverID == "" {
		return nil, ErrMissingParticipant
	}

	m.Body = strings.TrimSpace(m.Body)
	if m.Body == "" {
		return nil, ErrEmptyMessage
	}

	if m.DedupeKey != nil && strings.TrimSpace(*m.DedupeKey) == "" {
		m.DedupeKey = nil
	}

	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}

// Peer returns the participant on the other side of the message from userID.
// Falls back to a nil profile when the relation was not expanded.
func (m Message) Peer(userID string) (id string, profile *User) {
	if m.SenderID == userID {
		return m.ReceiverID, m.Receiver
	}
	return m.SenderID, m.Sender
}
