package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	chat "marketchat/internal/pkg/chat/domain"
)

func TestJoinConversation(t *testing.T) {
	repo := newFakeChatRepo()
	repo.register("conv-1", "user-a")
	repo.register("conv-1", "user-b")
	uc := NewJoinConversationUseCase(repo)

	t.Run("participant may join", func(t *testing.T) {
		err := uc.Execute(context.Background(), JoinConversationInput{ConversationID: "conv-1", UserID: "user-a"})
		require.NoError(t, err)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		err := uc.Execute(context.Background(), JoinConversationInput{ConversationID: "conv-1", UserID: "intruder"})
		require.ErrorIs(t, err, chat.ErrNotParticipant)
	})

	t.Run("fresh conversation is open", func(t *testing.T) {
		// The feed mounts before the first send registers anyone.
		err := uc.Execute(context.Background(), JoinConversationInput{ConversationID: "conv-fresh", UserID: "user-a"})
		require.NoError(t, err)
	})

	t.Run("ids are required", func(t *testing.T) {
		err := uc.Execute(context.Background(), JoinConversationInput{ConversationID: "conv-1"})
		require.Error(t, err)
	})
}
