package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

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
	assert.Equal(t, "user-1", got.UserID)

	require.NoError(t, s.DeleteConversation(ctx, first.ID, "user-1"))
	_, err = s.GetConversation(ctx, first.ID, "user-1")
	assert.ErrorIs(t, err, model.ErrOwnership)
}

func TestSQLiteOwnershipIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	conv, err := s.CreateConversation(ctx, "alice", "Private")
	require.NoError(t, err)

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

func TestSQLiteMessagesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	conv, err := s.CreateConversation(ctx, "user-1", "Chat")
	require.NoError(t, err)

	contents := []string{"one", "two", "three"}
	for _, c := range contents {
		_, err := s.AppendMessage(ctx, conv.ID, "user-1", model.RoleUser, c)
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content)
	}
}

func TestSQLiteDeleteCascadesMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	conv, err := s.CreateConversation(ctx, "user-1", "Chat")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, "user-1", model.RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID, "user-1"))

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conv.ID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	conv, err := s.CreateConversation(ctx, "user-1", "Durable")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, "user-1", model.RoleUser, "still here")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.ListMessages(ctx, conv.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "still here", msgs[0].Content)
}
