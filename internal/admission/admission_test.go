package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

func TestFixedWindowEnforcesPerUserLimit(t *testing.T) {
	ctx := context.Background()
	f := NewFixedWindow(2, time.Minute)

	require.NoError(t, f.Admit(ctx, "alice"))
	require.NoError(t, f.Admit(ctx, "alice"))
	assert.ErrorIs(t, f.Admit(ctx, "alice"), model.ErrAdmission)

	// Budgets are per user.
	assert.NoError(t, f.Admit(ctx, "bob"))
}

func TestFixedWindowResets(t *testing.T) {
	ctx := context.Background()
	f := NewFixedWindow(1, 10*time.Millisecond)

	require.NoError(t, f.Admit(ctx, "alice"))
	assert.ErrorIs(t, f.Admit(ctx, "alice"), model.ErrAdmission)

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, f.Admit(ctx, "alice"))
}

func TestAllowAll(t *testing.T) {
	assert.NoError(t, AllowAll{}.Admit(context.Background(), "anyone"))
}
