package usecase

import (
	"context"
	"sync"

	chat "marketchat/internal/pkg/chat/domain"
)

// fakeChatRepo implements the chat repository port in memory. SendMessage
// mirrors the production adapter's contract: both participants registered
// idempotently, dedupe-key collisions resolve to the stored row, relations
// hydrated from the users map.
type fakeChatRepo struct {
	mu           sync.Mutex
	messages     map[string][]chat.Message
	participants map[string][]string
	users        map[string]*chat.User

	sendErr     error
	lastErrs    map[string]error
	getErr      error
	sendCalls   int
	userFetches int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		messages:     make(map[string][]chat.Message),
		participants: make(map[string][]string),
		users:        make(map[string]*chat.User),
		lastErrs:     make(map[string]error),
	}
}

func (f *fakeChatRepo) addUser(u chat.User) {
	f.users[u.ID] = &u
}

func (f *fakeChatRepo) register(conversationID, userID string) {
	for _, id := range f.participants[conversationID] {
		if id == userID {
			return
		}
	}
	f.participants[conversationID] = append(f.participants[conversationID], userID)
}

func (f *fakeChatRepo) hydrate(m *chat.Message) {
	if u, ok := f.users[m.SenderID]; ok {
		m.Sender = u
	}
	if u, ok := f.users[m.ReceiverID]; ok {
		m.Receiver = u
	}
}

func (f *fakeChatRepo) SendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.register(m.ConversationID, m.SenderID)
	f.register(m.ConversationID, m.ReceiverID)

	if m.DedupeKey != nil {
		for _, prior := range f.messages[m.ConversationID] {
			if prior.DedupeKey != nil && *prior.DedupeKey == *m.DedupeKey {
				stored := prior
				f.hydrate(&stored)
				return &stored, nil
			}
		}
	}

	f.messages[m.ConversationID] = append(f.messages[m.ConversationID], m)
	f.hydrate(&m)
	return &m, nil
}

func (f *fakeChatRepo) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	msgs := f.messages[conversationID]
	if offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		f.hydrate(&out[i])
	}
	return out, nil
}

func (f *fakeChatRepo) LastMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lastErrs[conversationID]; err != nil {
		return nil, err
	}
	msgs := f.messages[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	last := msgs[len(msgs)-1]
	f.hydrate(&last)
	return &last, nil
}

func (f *fakeChatRepo) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.participants[conversationID]))
	copy(out, f.participants[conversationID])
	return out, nil
}

func (f *fakeChatRepo) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.participants[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// GetUser makes the fake double as the user repository: the conversation-id
// list is derived from registrations, like the production adapter does.
func (f *fakeChatRepo) GetUser(ctx context.Context, id string) (*chat.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userFetches++
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	if out.Conversations == nil {
		for convID, members := range f.participants {
			for _, member := range members {
				if member == id {
					out.Conversations = append(out.Conversations, convID)
				}
			}
		}
	}
	return &out, nil
}

// fakePublisher records published messages.
type fakePublisher struct {
	mu        sync.Mutex
	published []chat.Message
}

func (p *fakePublisher) PublishMessage(ctx context.Context, m chat.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, m)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}
