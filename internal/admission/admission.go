// Package admission provides pre-dispatch admission control for chat turns.
package admission

import (
	"context"
	"sync"
	"time"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

// Admitter decides whether a turn may start. It is consulted before any
// side effect of the turn occurs.
type Admitter interface {
	Admit(ctx context.Context, userID string) error
}

// FixedWindow is a per-user fixed-window counter. The HTTP edge carries its
// own rate-limit middleware; this guards the pipeline itself so non-HTTP
// callers get the same policy.
type FixedWindow struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	counts  map[string]int
	resetAt time.Time
}

// NewFixedWindow creates an admitter allowing limit turns per user per
// window.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:   limit,
		window:  window,
		counts:  make(map[string]int),
		resetAt: time.Now().Add(window),
	}
}

// Admit returns model.ErrAdmission when the caller is over its budget.
func (f *FixedWindow) Admit(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if now.After(f.resetAt) {
		f.counts = make(map[string]int)
		f.resetAt = now.Add(f.window)
	}

	if f.counts[userID] >= f.limit {
		return model.ErrAdmission
	}
	f.counts[userID]++
	return nil
}

// AllowAll admits every turn. Used in tests and when rate limiting is
// delegated entirely to the HTTP edge.
type AllowAll struct{}

// Admit always succeeds.
func (AllowAll) Admit(ctx context.Context, userID string) error {
	return nil
}
