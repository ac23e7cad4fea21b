// Package llm provides LLM provider adapters behind a common streaming
// interface.
package llm

import (
	"context"
)

// ChatMessage represents a chat message sent to a provider. ImageURL, when
// set, attaches an image (data URL or https) for vision-capable models;
// backends without vision support ignore it.
type ChatMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"-"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// CompletionResponse represents a single-shot completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Chunk is one element of a streaming completion. A stream delivers zero or
// more delta chunks followed by exactly one terminal chunk: Done set on
// success, Err set on failure. The channel is closed after the terminal
// chunk.
type Chunk struct {
	Delta string
	Done  bool
	Err   error
}

// Client is the interface for LLM providers.
type Client interface {
	// Name returns the backend identifier.
	Name() string

	// Models returns the model identifiers this backend serves.
	Models() []string

	// Complete sends a non-streaming completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream opens a streaming completion. The returned error covers
	// initiation only; once a channel is returned, failures arrive as a
	// terminal Err chunk. Cancelling ctx releases the upstream connection.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan Chunk, error)
}

// Default sampling parameters, applied by adapters when the request leaves
// them zero.
const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	defaultTopP        = 0.9
)
