package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/store"
)

func seedConversation(t *testing.T, st *store.Memory, count int) string {
	t.Helper()
	ctx := context.Background()

	conv, err := st.CreateConversation(ctx, "user-1", "Test")
	require.NoError(t, err)

	for i := 0; i < count; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		_, err := st.AppendMessage(ctx, conv.ID, "user-1", role, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}
	return conv.ID
}

func TestBuildContextWindowsTranscript(t *testing.T) {
	st := store.NewMemory()
	convID := seedConversation(t, st, 8)

	a := NewHistoryAssembler(st, 5, 1_000_000)
	history, err := a.BuildContext(context.Background(), convID, "user-1")
	require.NoError(t, err)

	// System instruction plus the last five messages, oldest first.
	require.Len(t, history, 6)
	assert.Equal(t, "system", history[0].Role)
	assert.Equal(t, SystemInstruction, history[0].Content)
	assert.Equal(t, "message 3", history[1].Content)
	assert.Equal(t, "message 7", history[5].Content)
}

func TestBuildContextShortTranscript(t *testing.T) {
	st := store.NewMemory()
	convID := seedConversation(t, st, 2)

	a := NewHistoryAssembler(st, 5, 1_000_000)
	history, err := a.BuildContext(context.Background(), convID, "user-1")
	require.NoError(t, err)

	require.Len(t, history, 3)
	assert.Equal(t, "message 0", history[1].Content)
	assert.Equal(t, "message 1", history[2].Content)
}

func TestBuildContextTokenBudgetKeepsNewest(t *testing.T) {
	st := store.NewMemory()
	convID := seedConversation(t, st, 8)

	// A budget this small trims everything except the newest message.
	a := NewHistoryAssembler(st, 5, 1)
	history, err := a.BuildContext(context.Background(), convID, "user-1")
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, "system", history[0].Role)
	assert.Equal(t, "message 7", history[1].Content)
}

func TestBuildContextOwnership(t *testing.T) {
	st := store.NewMemory()
	convID := seedConversation(t, st, 2)

	a := NewHistoryAssembler(st, 5, 1_000_000)
	_, err := a.BuildContext(context.Background(), convID, "someone-else")
	assert.ErrorIs(t, err, model.ErrOwnership)
}
