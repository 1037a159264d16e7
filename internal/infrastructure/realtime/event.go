package realtime

import (
	"context"
	"encoding/json"
	"time"

	chat "marketchat/internal/pkg/chat/domain"
)

// Channel is the shared notification channel carrying inserted-message events
// between nodes. Every API node bridges it into its local hub.
const Channel = "marketchat:message_inserted"

// MessageEvent is the wire shape of an inserted-message notification. It
// carries the fully expanded row so subscribers render it without a re-fetch
// round trip.
type MessageEvent struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Message        MessagePayload `json:"message"`
}

type MessagePayload struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	ReceiverID     string       `json:"receiver_id"`
	Body           string       `json:"body"`
	CreatedAt      time.Time    `json:"created_at"`
	Sender         *UserPayload `json:"sender,omitempty"`
	Receiver       *UserPayload `json:"receiver,omitempty"`
}

type UserPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Role     string `json:"role"`
}

// NewMessageEvent converts a domain message into its notification shape.
func NewMessageEvent(m chat.Message) MessageEvent {
	return MessageEvent{
		Type:           "message",
		ConversationID: m.ConversationID,
		Message:        ToPayload(m),
	}
}

// ToPayload converts a domain message for the wire.
func ToPayload(m chat.Message) MessagePayload {
	p := MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
	if m.Sender != nil {
		p.Sender = &UserPayload{ID: m.Sender.ID, Name: m.Sender.Name, ImageURL: m.Sender.ImageURL, Role: string(m.Sender.Role)}
	}
	if m.Receiver != nil {
		p.Receiver = &UserPayload{ID: m.Receiver.ID, Name: m.Receiver.Name, ImageURL: m.Receiver.ImageURL, Role: string(m.Receiver.Role)}
	}
	return p
}

// PublishMessage fans the inserted message out to sessions joined to its
// conversation. It makes Hub usable as the send pipeline's publisher when the
// service runs as a single node.
func (h *Hub) PublishMessage(ctx context.Context, m chat.Message) error {
	payload, err := json.Marshal(NewMessageEvent(m))
	if err != nil {
		return err
	}
	h.Broadcast(m.ConversationID, m.ID, payload)
	return nil
}
