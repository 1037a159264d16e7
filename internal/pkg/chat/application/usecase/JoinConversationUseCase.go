package usecase

import (
	"context"
	"fmt"

	chat "marketchat/internal/pkg/chat/domain"
	repository "marketchat/internal/pkg/chat/persistence/repository/port"
)

// JoinConversationInput validates a request to attach a user session to a
// conversation room.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase gates room membership. A user may join a
// conversation they are registered in, or a fresh conversation id with no
// participants yet: a buyer opening a new thread mounts the feed before the
// first send registers anyone.
type JoinConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return fmt.Errorf("conversation_id and user_id are required")
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if ok {
		return nil
	}

	ids, err := uc.Repo.ListParticipantIDs(ctx, in.ConversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(ids) == 0 {
		return nil
	}
	return chat.ErrNotParticipant
}
