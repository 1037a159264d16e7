package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	chat "marketchat/internal/pkg/chat/domain"
)

func TestSendMessageRegistersBothParticipants(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "user-a", Name: "Alice"})
	repo.addUser(chat.User{ID: "user-b", Name: "Bob"})
	pub := &fakePublisher{}
	uc := NewSendMessageUseCase(repo, pub)

	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1",
		SenderID:       "user-a",
		ReceiverID:     "user-b",
		Body:           "hello",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.Equal(t, "hello", msg.Body)
	require.False(t, msg.CreatedAt.IsZero())
	require.NotNil(t, msg.Sender)
	require.Equal(t, "Alice", msg.Sender.Name)

	// Both sides registered, exactly one row, one live event.
	for _, userID := range []string{"user-a", "user-b"} {
		ok, err := repo.IsParticipant(context.Background(), "conv-1", userID)
		require.NoError(t, err)
		require.True(t, ok, "expected %s registered in conv-1", userID)
	}
	require.Len(t, repo.messages["conv-1"], 1)
	require.Equal(t, 1, pub.count())
}

func TestSendMessageRegistrationIsIdempotent(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "user-a"})
	repo.addUser(chat.User{ID: "user-b"})
	uc := NewSendMessageUseCase(repo, nil)

	for i := 0; i < 3; i++ {
		_, err := uc.Execute(context.Background(), SendMessageInput{
			ConversationID: "conv-1",
			SenderID:       "user-a",
			ReceiverID:     "user-b",
			Body:           "again",
		})
		require.NoError(t, err)
	}

	// Re-registering an already present pair must not duplicate entries.
	ids, err := repo.ListParticipantIDs(context.Background(), "conv-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user-a", "user-b"}, ids)
}

// Guards the documented duplicate-send behavior: without a dedupe key two
// rapid identical sends produce two distinct rows.
func TestSendMessageWithoutDedupeKeyDuplicates(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "user-a"})
	repo.addUser(chat.User{ID: "user-b"})
	uc := NewSendMessageUseCase(repo, nil)

	in := SendMessageInput{ConversationID: "conv-1", SenderID: "user-a", ReceiverID: "user-b", Body: "hi"}
	first, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, repo.messages["conv-1"], 2)
}

func TestSendMessageDedupeKeyResolvesToStoredRow(t *testing.T) {
	repo := newFakeChatRepo()
	repo.addUser(chat.User{ID: "user-a"})
	repo.addUser(chat.User{ID: "user-b"})
	pub := &fakePublisher{}
	uc := NewSendMessageUseCase(repo, pub)

	key := "send-attempt-42"
	in := SendMessageInput{ConversationID: "conv-1", SenderID: "user-a", ReceiverID: "user-b", Body: "hi", DedupeKey: &key}
	first, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	retried, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, first.ID, retried.ID)
	require.Len(t, repo.messages["conv-1"], 1)
	// The retry must not replay the event to subscribers.
	require.Equal(t, 1, pub.count())
}

func TestSendMessageValidation(t *testing.T) {
	uc := NewSendMessageUseCase(newFakeChatRepo(), nil)

	cases := []struct {
		name string
		in   SendMessageInput
		want error
	}{
		{"empty body", SendMessageInput{ConversationID: "c", SenderID: "a", ReceiverID: "b", Body: "   "}, chat.ErrEmptyMessage},
		{"missing receiver", SendMessageInput{ConversationID: "c", SenderID: "a", Body: "hi"}, chat.ErrMissingParticipant},
		{"missing conversation", SendMessageInput{SenderID: "a", ReceiverID: "b", Body: "hi"}, chat.ErrMissingConversation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSendMessagePersistenceError(t *testing.T) {
	repo := newFakeChatRepo()
	repo.sendErr = errors.New("connection refused")
	uc := NewSendMessageUseCase(repo, nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: "conv-1", SenderID: "a", ReceiverID: "b", Body: "hi",
	})
	require.ErrorIs(t, err, ErrPersistence)
}
