package usecase

import (
	"context"
	"fmt"

	chat "marketchat/internal/pkg/chat/domain"
	repository "marketchat/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch messages of a conversation.
type GetMessageInput struct {
	ConversationID string
	Limit          int
	Offset         int
}

// GetMessageUseCase fetches the ordered history of a conversation, oldest
// first, with sender/receiver expanded. On failure callers keep their
// last-known-good list; no partial state is returned.
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

// Execute returns messages for the conversation honoring limit/offset.
func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.ConversationID == "" {
		return nil, fmt.Errorf("conversationId is required")
	}
	msgs, err := uc.Repo.GetMessagesByConversation(ctx, in.ConversationID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
