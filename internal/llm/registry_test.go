package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

type stubBackend struct {
	name   string
	models []string
}

func (s *stubBackend) Name() string     { return s.name }
func (s *stubBackend) Models() []string { return s.models }

func (s *stubBackend) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBackend) Stream(ctx context.Context, req *CompletionRequest) (<-chan Chunk, error) {
	return nil, errors.New("not implemented")
}

func TestRegistryRoutesBySubstring(t *testing.T) {
	anthropic := &stubBackend{name: "anthropic"}
	openai := &stubBackend{name: "openai"}
	nvidia := &stubBackend{name: "nvidia"}

	r := NewRegistry()
	r.Register(anthropic, "claude")
	r.Register(openai, "gpt", "openai")
	r.Register(nvidia, "nvidia", "llama")
	r.SetFallback(nvidia)

	tests := []struct {
		modelID string
		want    Client
	}{
		{"claude-3-5-sonnet-20241022", anthropic},
		{"gpt-4o", openai},
		{"GPT-4o-Mini", openai},
		{"meta/llama-3.2-3b-instruct", nvidia},
		{"nvidia/llama-3.1-nemotron-nano-vl-8b-v1", nvidia},
		{"some-unknown-model", nvidia},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			got, err := r.ClientFor(tt.modelID)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestRegistryUnknownModelWithoutFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubBackend{name: "anthropic"}, "claude")

	_, err := r.ClientFor("gpt-4o")
	require.Error(t, err)

	var perr *model.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "registry", perr.Backend)
}

func TestRegistryBackendsAndCatalog(t *testing.T) {
	anthropic := &stubBackend{name: "anthropic", models: []string{"claude-3-5-sonnet-20241022"}}
	nvidia := &stubBackend{name: "nvidia", models: []string{"meta/llama-3.2-3b-instruct", "meta/llama-3.1-70b-instruct"}}

	r := NewRegistry()
	r.Register(anthropic, "claude")
	r.Register(nvidia, "nvidia", "llama")
	r.SetFallback(nvidia)

	// The fallback is also registered; it must not be listed twice.
	assert.Equal(t, []string{"anthropic", "nvidia"}, r.Backends())

	catalog := r.Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, ModelInfo{ID: "claude-3-5-sonnet-20241022", Provider: "anthropic"}, catalog[0])
	assert.Equal(t, ModelInfo{ID: "meta/llama-3.2-3b-instruct", Provider: "nvidia"}, catalog[1])
}
