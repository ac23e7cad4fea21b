package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

func TestMemoryConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first, err := s.CreateConversation(ctx, "user-1", "First")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.CreateConversation(ctx, "user-1", "Second")
	require.NoError(t, err)

	convs, err := s.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID, "newest conversation first")
	assert.Equal(t, first.ID, convs[1].ID)

	got, err := s.GetConversation(ctx, first.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)

	require.NoError(t, s.DeleteConversation(ctx, first.ID, "user-1"))

	_, err = s.GetConversation(ctx, first.ID, "user-1")
	assert.ErrorIs(t, err, model.ErrOwnership)

	convs, err = s.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestMemoryOwnershipIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	conv, err := s.CreateConversation(ctx, "alice", "Private")
	require.NoError(t, err)

	// A foreign conversation and a missing one must fail identically.
	_, foreignErr := s.GetConversation(ctx, conv.ID, "bob")
	_, missingErr := s.GetConversation(ctx, "no-such-id", "bob")
	assert.ErrorIs(t, foreignErr, model.ErrOwnership)
	assert.Equal(t, missingErr, foreignErr)

	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, "bob"), model.ErrOwnership)

	_, err = s.AppendMessage(ctx, conv.ID, "bob", model.RoleUser, "hi")
	assert.ErrorIs(t, err, model.ErrOwnership)

	_, err = s.ListMessages(ctx, conv.ID, "bob")
	assert.ErrorIs(t, err, model.ErrOwnership)
}

func TestMemoryMessagesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	conv, err := s.CreateConversation(ctx, "user-1", "Chat")
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four"}
	roles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleUser, model.RoleAssistant}
	for i, c := range contents {
		msg, err := s.AppendMessage(ctx, conv.ID, "user-1", roles[i], c)
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, conv.ID, msg.ConversationID)
	}

	msgs, err := s.ListMessages(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content)
		assert.Equal(t, roles[i], msgs[i].Role)
	}
}

func TestMemoryDeleteRemovesTranscript(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	conv, err := s.CreateConversation(ctx, "user-1", "Chat")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, "user-1", model.RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID, "user-1"))

	_, err = s.ListMessages(ctx, conv.ID, "user-1")
	assert.ErrorIs(t, err, model.ErrOwnership)
}
