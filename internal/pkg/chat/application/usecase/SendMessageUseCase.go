package usecase

import (
	"context"
	"fmt"

	"marketchat/internal/metrics"
	chat "marketchat/internal/pkg/chat/domain"
	repository "marketchat/internal/pkg/chat/persistence/repository/port"
)

// MessagePublisher fans a persisted message out to live subscribers. The hub
// implements it for single-node runs; the redis publisher covers workers and
// multi-node deployments.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, m chat.Message) error
}

// SendMessageInput carries the data needed to send a new message. DedupeKey is
// optional: without it a retried send produces a second row.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	ReceiverID     string
	Body           string
	DedupeKey      *string
}

// SendMessageUseCase persists an outgoing message. The repository guarantees
// that on success both participants are registered against the conversation
// and exactly one row exists: register-register-create is one transaction, so
// the invariant cannot be broken by a partial failure.
type SendMessageUseCase struct {
	Repo      repository.ChatRepository
	Publisher MessagePublisher // optional; nil skips live fan-out
}

func NewSendMessageUseCase(repo repository.ChatRepository, pub MessagePublisher) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Publisher: pub}
}

// Execute validates, persists and publishes a new message.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Body:           in.Body,
		DedupeKey:      in.DedupeKey,
	})
	if err != nil {
		return nil, err
	}

	stored, err := uc.Repo.SendMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if stored.ID != msg.ID {
		// Dedupe key matched an earlier send; the stored row already reached
		// subscribers the first time around.
		metrics.MessagesDeduped.Inc()
		return stored, nil
	}

	if uc.Publisher != nil {
		// Best-effort: history remains the source of truth when fan-out fails.
		_ = uc.Publisher.PublishMessage(ctx, *stored)
	}
	return stored, nil
}
