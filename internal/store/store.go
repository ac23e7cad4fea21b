// Package store persists conversations and messages behind an
// ownership-checked CRUD interface.
package store

import (
	"context"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

// ConversationStore owns durable conversation and message records. Every
// operation takes the caller's identity and fails with model.ErrOwnership
// when the conversation does not exist or belongs to someone else; the two
// cases are indistinguishable to the caller.
//
// Each call is independently atomic. The store does not serialize concurrent
// turns on the same conversation.
type ConversationStore interface {
	// CreateConversation creates a conversation owned by userID.
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)

	// ListConversations returns the caller's conversations, newest first.
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)

	// GetConversation returns a conversation after an ownership check.
	GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, conversationID, userID string) error

	// AppendMessage persists an immutable message at the end of the
	// conversation's transcript.
	AppendMessage(ctx context.Context, conversationID, userID string, role model.Role, content string) (*model.Message, error)

	// ListMessages returns the full transcript in creation order, ties
	// broken by message ID.
	ListMessages(ctx context.Context, conversationID, userID string) ([]model.Message, error)

	// Close releases underlying resources.
	Close() error
}
