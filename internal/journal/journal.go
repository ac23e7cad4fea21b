// Package journal records turn outcomes on a NATS JetStream audit stream.
package journal

import (
	"context"
	"time"
)

// Status of a recorded turn.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// TurnEvent is one journal entry describing the outcome of a chat turn.
type TurnEvent struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Model          string    `json:"model"`
	Status         Status    `json:"status"`
	Error          string    `json:"error,omitempty"`
	At             time.Time `json:"at"`
}

// Journal records turn events. Recording is best-effort: failures are logged
// by implementations and never fail the turn.
type Journal interface {
	Record(ctx context.Context, event TurnEvent)
	Connected() bool
	Close()
}

// Nop discards all events. Used when no NATS URL is configured.
type Nop struct{}

func (Nop) Record(ctx context.Context, event TurnEvent) {}
func (Nop) Connected() bool                             { return false }
func (Nop) Close()                                      {}
