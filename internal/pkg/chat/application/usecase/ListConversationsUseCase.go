package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"marketchat/internal/metrics"
	chat "marketchat/internal/pkg/chat/domain"
	repository "marketchat/internal/pkg/chat/persistence/repository/port"
)

const defaultDirectoryFanout = 4

// ListConversationsInput wraps the user whose directory is requested.
type ListConversationsInput struct {
	UserID string
}

// DirectoryResult is the deduplicated conversation directory. Partial reports
// that at least one conversation could not be summarized and was skipped, so
// the caller can show a non-blocking indicator instead of failing the page.
type DirectoryResult struct {
	Conversations []chat.ConversationSummary
	Partial       bool
}

// ListConversationsUseCase builds one summary row per distinct conversation id
// the user participates in: peer profile plus last-message preview. Unknown
// user ids yield an empty directory, not an error. Per-conversation fetches
// run concurrently with bounded parallelism; a failed fetch is logged and that
// conversation dropped from the result.
type ListConversationsUseCase struct {
	Repo     repository.ChatRepository
	Users    repository.UserRepository
	Resolver *ResolveParticipantUseCase
	Fanout   int
	Log      zerolog.Logger
}

func NewListConversationsUseCase(repo repository.ChatRepository, users repository.UserRepository, resolver *ResolveParticipantUseCase, log zerolog.Logger) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Users: users, Resolver: resolver, Fanout: defaultDirectoryFanout, Log: log}
}

// Execute resolves the user's conversation-id list and summarizes each entry.
func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) (*DirectoryResult, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}

	user, err := uc.Users.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if user == nil {
		return &DirectoryResult{Conversations: []chat.ConversationSummary{}}, nil
	}

	// First-seen fold over the conversation-id list. The list is unique per
	// participant row today; the fold guards future multi-source fetches.
	seen := make(map[string]struct{}, len(user.Conversations))
	var ids []string
	for _, id := range user.Conversations {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	fanout := uc.Fanout
	if fanout <= 0 {
		fanout = defaultDirectoryFanout
	}

	summaries := make([]*chat.ConversationSummary, len(ids))
	sem := make(chan struct{}, fanout)
	var wg sync.WaitGroup
	for i, convID := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, convID string) {
			defer wg.Done()
			defer func() { <-sem }()
			s, err := uc.summarize(ctx, convID, in.UserID)
			if err != nil {
				uc.Log.Error().Err(err).
					Str("conversation_id", convID).
					Str("user_id", in.UserID).
					Msg("skipping conversation in directory")
				return
			}
			summaries[i] = s
		}(i, convID)
	}
	wg.Wait()

	result := &DirectoryResult{Conversations: make([]chat.ConversationSummary, 0, len(ids))}
	for _, s := range summaries {
		if s == nil {
			result.Partial = true
			continue
		}
		result.Conversations = append(result.Conversations, *s)
	}
	if result.Partial {
		metrics.DirectoryPartials.Inc()
	}
	return result, nil
}

func (uc *ListConversationsUseCase) summarize(ctx context.Context, conversationID, userID string) (*chat.ConversationSummary, error) {
	last, err := uc.Repo.LastMessage(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s := &chat.ConversationSummary{ConversationID: conversationID}
	if last != nil {
		s.LastMessage = last.Body
		s.LastMessageAt = last.CreatedAt
		peerID, profile := last.Peer(userID)
		s.PeerID = peerID
		if profile == nil {
			profile, err = uc.Resolver.Execute(ctx, peerID)
			if err != nil {
				return nil, err
			}
		}
		if profile != nil {
			s.PeerName = profile.Name
			s.PeerImageURL = profile.ImageURL
		}
		return s, nil
	}

	// Membership without messages: sentinel preview, no timestamp.
	s.LastMessage = chat.EmptyConversationPreview
	participants, err := uc.Repo.ListParticipantIDs(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, id := range participants {
		if id == userID {
			continue
		}
		s.PeerID = id
		profile, err := uc.Resolver.Execute(ctx, id)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			s.PeerName = profile.Name
			s.PeerImageURL = profile.ImageURL
		}
		break
	}
	return s, nil
}
