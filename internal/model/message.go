package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single turn entry in a conversation. Messages are
// immutable once persisted; ordering within a conversation is by creation
// time with the ID breaking ties.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new message on a conversation.
type SendMessageRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}
