package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	chat "marketchat/internal/pkg/chat/domain"
)

func TestGetMessagePreservesStoreOrder(t *testing.T) {
	repo := newFakeChatRepo()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, body := range []string{"first", "second", "third"} {
		repo.messages["conv-1"] = append(repo.messages["conv-1"], chat.Message{
			ID:             string(rune('a' + i)),
			ConversationID: "conv-1",
			SenderID:       "user-a",
			ReceiverID:     "user-b",
			Body:           body,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	uc := NewGetMessageUseCase(repo)

	msgs, err := uc.Execute(context.Background(), GetMessageInput{ConversationID: "conv-1"})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Body)
	require.Equal(t, "second", msgs[1].Body)
	require.Equal(t, "third", msgs[2].Body)
	require.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	require.True(t, msgs[1].CreatedAt.Before(msgs[2].CreatedAt))
}

func TestGetMessageEmptyConversation(t *testing.T) {
	uc := NewGetMessageUseCase(newFakeChatRepo())

	msgs, err := uc.Execute(context.Background(), GetMessageInput{ConversationID: "conv-empty"})
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestGetMessageRequiresConversationID(t *testing.T) {
	uc := NewGetMessageUseCase(newFakeChatRepo())

	_, err := uc.Execute(context.Background(), GetMessageInput{})
	require.Error(t, err)
}

func TestGetMessagePersistenceError(t *testing.T) {
	repo := newFakeChatRepo()
	repo.getErr = errors.New("timeout")
	uc := NewGetMessageUseCase(repo)

	_, err := uc.Execute(context.Background(), GetMessageInput{ConversationID: "conv-1"})
	require.ErrorIs(t, err, ErrPersistence)
}
