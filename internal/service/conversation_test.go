package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/chat-backend/internal/llm"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/store"
	"github.com/streamchat-ai/chat-backend/pkg/logger"
)

func newConversationService(client llm.Client) (*ConversationService, *store.Memory) {
	st := store.NewMemory()
	registry := llm.NewRegistry()
	if client != nil {
		registry.SetFallback(client)
	}
	return NewConversationService(st, registry, logger.NewNop(), "stub-model"), st
}

func TestCreateUsesProvidedTitle(t *testing.T) {
	svc, _ := newConversationService(&stubClient{})

	conv, err := svc.Create(context.Background(), "user-1", &model.CreateChatRequest{Title: "My Chat"})
	require.NoError(t, err)
	assert.Equal(t, "My Chat", conv.Title)
}

func TestCreateDefaultsTitle(t *testing.T) {
	svc, _ := newConversationService(&stubClient{})

	conv, err := svc.Create(context.Background(), "user-1", &model.CreateChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, conv.Title)
}

func TestCreateGeneratesTitleFromInitialMessage(t *testing.T) {
	client := &stubClient{completeResp: &llm.CompletionResponse{Content: "  \"Trip Planning\"\n"}}
	svc, _ := newConversationService(client)

	conv, err := svc.Create(context.Background(), "user-1", &model.CreateChatRequest{
		InitialMessage: "help me plan a trip to Norway",
	})
	require.NoError(t, err)
	assert.Equal(t, "Trip Planning", conv.Title)

	require.NotNil(t, client.lastReq)
	assert.Equal(t, "stub-model", client.lastReq.Model)
}

func TestCreateTruncatesLongGeneratedTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"ascii", strings.Repeat("t", 80)},
		{"multibyte", strings.Repeat("é", 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{completeResp: &llm.CompletionResponse{Content: tt.content}}
			svc, _ := newConversationService(client)

			conv, err := svc.Create(context.Background(), "user-1", &model.CreateChatRequest{
				InitialMessage: "something",
			})
			require.NoError(t, err)
			assert.Equal(t, maxTitleChars, utf8.RuneCountInString(conv.Title))
			assert.True(t, utf8.ValidString(conv.Title), "truncation must not split a rune")
		})
	}
}

func TestCreateTitleFallbackOnProviderError(t *testing.T) {
	client := &stubClient{completeErr: errors.New("quota exceeded")}
	svc, st := newConversationService(client)

	conv, err := svc.Create(context.Background(), "user-1", &model.CreateChatRequest{
		InitialMessage: "hello",
	})
	require.NoError(t, err, "title generation never fails creation")
	assert.Equal(t, model.DefaultTitle, conv.Title)

	convs, err := st.ListConversations(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestCreateTitleFallbackWithoutBackend(t *testing.T) {
	svc, _ := newConversationService(nil)

	conv, err := svc.Create(context.Background(), "user-1", &model.CreateChatRequest{
		InitialMessage: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, conv.Title)
}

func TestDeleteAndMessagesDelegateOwnership(t *testing.T) {
	svc, st := newConversationService(&stubClient{})

	conv, err := st.CreateConversation(context.Background(), "alice", "Private")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), "bob", conv.ID), model.ErrOwnership)

	_, err = svc.Messages(context.Background(), "bob", conv.ID)
	assert.ErrorIs(t, err, model.ErrOwnership)
}
