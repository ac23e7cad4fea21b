// Package service provides the chat-turn pipeline and conversation
// operations.
package service

import (
	"context"

	"github.com/pkoukk/tiktoken-go"

	"github.com/streamchat-ai/chat-backend/internal/llm"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/store"
)

// SystemInstruction is prepended to every bounded context.
const SystemInstruction = "You are a helpful assistant. Provide clear, accurate answers in a friendly, conversational tone. Adapt response length to the question: concise for simple questions, detailed reasoning for complex ones. Use the chat history and any provided file content to inform your answers. If you don't know the answer, say so and suggest alternatives."

// HistoryAssembler builds the bounded context for a turn: the last
// windowSize messages of the transcript in creation order, prepended with
// the system instruction, trimmed further when the token budget is
// exceeded. It reads persisted state on every call and caches nothing.
type HistoryAssembler struct {
	store       store.ConversationStore
	windowSize  int
	tokenBudget int
	encoder     *tiktoken.Tiktoken
}

// NewHistoryAssembler creates an assembler. The token encoder needs its
// vocabulary at runtime; when unavailable a bytes/4 estimate is used
// instead.
func NewHistoryAssembler(st store.ConversationStore, windowSize, tokenBudget int) *HistoryAssembler {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		encoder = nil
	}
	return &HistoryAssembler{
		store:       st,
		windowSize:  windowSize,
		tokenBudget: tokenBudget,
		encoder:     encoder,
	}
}

// BuildContext returns the bounded context for the conversation, at most
// windowSize+1 entries. Ownership failures from the store propagate
// unchanged.
func (a *HistoryAssembler) BuildContext(ctx context.Context, conversationID, callerID string) ([]llm.ChatMessage, error) {
	msgs, err := a.store.ListMessages(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}

	if len(msgs) > a.windowSize {
		msgs = msgs[len(msgs)-a.windowSize:]
	}

	window := make([]llm.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		window = append(window, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	// The newest message always survives the token trim.
	budget := a.tokenBudget - a.countTokens(SystemInstruction)
	for len(window) > 1 && a.windowTokens(window) > budget {
		window = window[1:]
	}

	context := make([]llm.ChatMessage, 0, len(window)+1)
	context = append(context, llm.ChatMessage{Role: string(model.RoleSystem), Content: SystemInstruction})
	context = append(context, window...)
	return context, nil
}

func (a *HistoryAssembler) windowTokens(window []llm.ChatMessage) int {
	total := 0
	for _, msg := range window {
		total += a.countTokens(msg.Content)
	}
	return total
}

func (a *HistoryAssembler) countTokens(text string) int {
	if a.encoder == nil {
		return len(text) / 4
	}
	return len(a.encoder.Encode(text, nil, nil))
}
