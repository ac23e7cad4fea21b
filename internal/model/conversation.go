// Package model defines data structures for the chat backend.
package model

import (
	"time"
)

// Conversation represents a chat thread owned by a single user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultTitle is used when no title is provided and generation fails.
const DefaultTitle = "New Chat"

// CreateChatRequest is the request to create a new conversation. When
// InitialMessage is set, the title is summarized from it.
type CreateChatRequest struct {
	Title          string `json:"title,omitempty"`
	InitialMessage string `json:"initial_message,omitempty"`
	Model          string `json:"model,omitempty"`
}

// CreateChatResponse is returned after creating a conversation.
type CreateChatResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
