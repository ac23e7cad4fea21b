package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streamchat-ai/chat-backend/internal/llm"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/store"
	"github.com/streamchat-ai/chat-backend/pkg/logger"
	"github.com/streamchat-ai/chat-backend/pkg/metrics"
)

const (
	maxTitleChars = 50
	titleTimeout  = 10 * time.Second

	titleInstruction = "Summarize this message into a concise chat title (max 50 characters). Respond with the title only."
)

// ConversationService handles conversation-level operations.
type ConversationService struct {
	store        store.ConversationStore
	registry     *llm.Registry
	logger       *logger.Logger
	defaultModel string
}

// NewConversationService creates a conversation service.
func NewConversationService(st store.ConversationStore, registry *llm.Registry, log *logger.Logger, defaultModel string) *ConversationService {
	return &ConversationService{
		store:        st,
		registry:     registry,
		logger:       log,
		defaultModel: defaultModel,
	}
}

// Create creates a conversation. When the request carries an initial
// message, the title is summarized from it; title generation is best-effort
// and never fails creation.
func (s *ConversationService) Create(ctx context.Context, userID string, req *model.CreateChatRequest) (*model.Conversation, error) {
	title := req.Title
	if title == "" {
		title = model.DefaultTitle
	}
	if req.InitialMessage != "" {
		title = s.generateTitle(ctx, req.InitialMessage, req.Model)
	}

	conv, err := s.store.CreateConversation(ctx, userID, title)
	if err != nil {
		return nil, err
	}

	metrics.ConversationsTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)
	return conv, nil
}

// List returns the caller's conversations, newest first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// Delete removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	return s.store.DeleteConversation(ctx, conversationID, userID)
}

// Messages returns the conversation's transcript in creation order.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	return s.store.ListMessages(ctx, conversationID, userID)
}

// generateTitle asks a provider to summarize the first message into a short
// title. Any failure falls back to the default title.
func (s *ConversationService) generateTitle(ctx context.Context, message, modelID string) string {
	if modelID == "" {
		modelID = s.defaultModel
	}

	client, err := s.registry.ClientFor(modelID)
	if err != nil {
		s.logger.Warn("failed to generate chat title", zap.Error(err))
		return model.DefaultTitle
	}

	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Model: modelID,
		Messages: []llm.ChatMessage{
			{Role: string(model.RoleSystem), Content: titleInstruction},
			{Role: "user", Content: message},
		},
		MaxTokens: 60,
	})
	if err != nil {
		s.logger.Warn("failed to generate chat title",
			zap.String("model", modelID),
			zap.Error(err),
		)
		return model.DefaultTitle
	}

	title := strings.Trim(strings.TrimSpace(resp.Content), "\"'")
	title = strings.TrimSpace(title)
	if title == "" {
		return model.DefaultTitle
	}
	if runes := []rune(title); len(runes) > maxTitleChars {
		title = string(runes[:maxTitleChars])
	}
	return title
}
