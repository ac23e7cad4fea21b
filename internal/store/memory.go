package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

// Memory is an in-memory ConversationStore used for tests and demo mode.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
	}
}

// CreateConversation creates a conversation owned by userID.
func (s *Memory) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	out := *conv
	return &out, nil
}

// ListConversations returns the caller's conversations, newest first.
func (s *Memory) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]model.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			convs = append(convs, *conv)
		}
	}

	sort.Slice(convs, func(i, j int) bool {
		if convs[i].CreatedAt.Equal(convs[j].CreatedAt) {
			return convs[i].ID > convs[j].ID
		}
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})

	return convs, nil
}

// GetConversation returns a conversation after an ownership check.
func (s *Memory) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, model.ErrOwnership
	}

	out := *conv
	return &out, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Memory) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return model.ErrOwnership
	}

	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	return nil
}

// AppendMessage persists a message at the end of the transcript.
func (s *Memory) AppendMessage(ctx context.Context, conversationID, userID string, role model.Role, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, model.ErrOwnership
	}

	msg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)

	out := msg
	return &out, nil
}

// ListMessages returns the full transcript in creation order.
func (s *Memory) ListMessages(ctx context.Context, conversationID, userID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, model.ErrOwnership
	}

	msgs := make([]model.Message, len(s.messages[conversationID]))
	copy(msgs, s.messages[conversationID])

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	return msgs, nil
}

// Close is a no-op for the in-memory store.
func (s *Memory) Close() error {
	return nil
}
