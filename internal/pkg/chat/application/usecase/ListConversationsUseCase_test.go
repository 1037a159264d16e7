package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	chat "marketchat/internal/pkg/chat/domain"
)

func newDirectoryUC(repo *fakeChatRepo) *ListConversationsUseCase {
	resolver := NewResolveParticipantUseCase(repo, nil, zerolog.Nop())
	return NewListConversationsUseCase(repo, repo, resolver, zerolog.Nop())
}

func seedConversation(repo *fakeChatRepo, convID, senderID, receiverID, body string, at time.Time) {
	repo.register(convID, senderID)
	repo.register(convID, receiverID)
	repo.messages[convID] = append(repo.messages[convID], chat.Message{
		ID:             convID + "-" + body,
		ConversationID: convID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		CreatedAt:      at,
	})
}

func TestDirectoryDedupsConversationIDs(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "buyer", Name: "Bea", Conversations: []string{"c1", "c2", "c1", "c3", "c2"}})
	repo.addUser(chat.User{ID: "seller", Name: "Sam"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, convID := range []string{"c1", "c2", "c3"} {
		seedConversation(repo, convID, "buyer", "seller", "hi from "+convID, now)
	}
	uc := newDirectoryUC(repo)

	result, err := uc.Execute(context.Background(), ListConversationsInput{UserID: "buyer"})
	require.NoError(t, err)
	require.False(t, result.Partial)

	// Five raw ids spanning three distinct conversations fold to exactly
	// three entries, first-seen order preserved.
	require.Len(t, result.Conversations, 3)
	require.Equal(t, "c1", result.Conversations[0].ConversationID)
	require.Equal(t, "c2", result.Conversations[1].ConversationID)
	require.Equal(t, "c3", result.Conversations[2].ConversationID)
}

func TestDirectorySummarizesPeerAndPreview(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "buyer", Name: "Bea", Conversations: []string{"c1"}})
	repo.addUser(chat.User{ID: "seller", Name: "Sam", ImageURL: "https://img/sam.png"})
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	seedConversation(repo, "c1", "seller", "buyer", "your order shipped", at)
	uc := newDirectoryUC(repo)

	result, err := uc.Execute(context.Background(), ListConversationsInput{UserID: "buyer"})
	require.NoError(t, err)
	require.Len(t, result.Conversations, 1)

	entry := result.Conversations[0]
	require.Equal(t, "seller", entry.PeerID)
	require.Equal(t, "Sam", entry.PeerName)
	require.Equal(t, "https://img/sam.png", entry.PeerImageURL)
	require.Equal(t, "your order shipped", entry.LastMessage)
	require.Equal(t, at, entry.LastMessageAt)
}

func TestDirectoryEmptyConversationSentinel(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "buyer", Name: "Bea", Conversations: []string{"c-new"}})
	repo.addUser(chat.User{ID: "seller", Name: "Sam"})
	repo.register("c-new", "buyer")
	repo.register("c-new", "seller")
	uc := newDirectoryUC(repo)

	result, err := uc.Execute(context.Background(), ListConversationsInput{UserID: "buyer"})
	require.NoError(t, err)
	require.Len(t, result.Conversations, 1)

	entry := result.Conversations[0]
	require.Equal(t, chat.EmptyConversationPreview, entry.LastMessage)
	require.True(t, entry.LastMessageAt.IsZero(), "no relative time for empty conversations")
	require.Equal(t, "seller", entry.PeerID)
	require.Equal(t, "Sam", entry.PeerName)
}

func TestDirectoryPartialOnFetchFailure(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "buyer", Conversations: []string{"c1", "c2", "c3"}})
	repo.addUser(chat.User{ID: "seller"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, convID := range []string{"c1", "c2", "c3"} {
		seedConversation(repo, convID, "buyer", "seller", "hey", now)
	}
	repo.lastErrs["c2"] = errors.New("connection reset")
	uc := newDirectoryUC(repo)

	result, err := uc.Execute(context.Background(), ListConversationsInput{UserID: "buyer"})
	require.NoError(t, err)
	require.True(t, result.Partial)
	require.Len(t, result.Conversations, 2)
	require.Equal(t, "c1", result.Conversations[0].ConversationID)
	require.Equal(t, "c3", result.Conversations[1].ConversationID)
}

func TestDirectoryUnknownUserIsEmptyNotError(t *testing.T) {
	uc := newDirectoryUC(newFakeChatRepo())

	result, err := uc.Execute(context.Background(), ListConversationsInput{UserID: "nobody"})
	require.NoError(t, err)
	require.Empty(t, result.Conversations)
	require.False(t, result.Partial)
}

func TestDirectoryHonorsConfiguredFanout(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "buyer", Name: "Bea", Conversations: []string{"c1", "c2", "c3", "c4", "c5"}})
	repo.addUser(chat.User{ID: "seller", Name: "Sam"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, convID := range []string{"c1", "c2", "c3", "c4", "c5"} {
		seedConversation(repo, convID, "buyer", "seller", "hi from "+convID, now)
	}
	uc := newDirectoryUC(repo)
	uc.Fanout = 1

	result, err := uc.Execute(context.Background(), ListConversationsInput{UserID: "buyer"})
	require.NoError(t, err)
	require.False(t, result.Partial)
	require.Len(t, result.Conversations, 5)
	for i, convID := range []string{"c1", "c2", "c3", "c4", "c5"} {
		require.Equal(t, convID, result.Conversations[i].ConversationID)
	}
}
