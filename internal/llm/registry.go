package llm

import (
	"errors"
	"strings"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

// Registry routes model identifiers to backends. Rules match when the
// lowercased model id contains one of the registered patterns, in
// registration order; a fallback backend catches everything else. Adding a
// backend means one Register call, dispatch sites never change.
type Registry struct {
	rules    []rule
	fallback Client
}

type rule struct {
	patterns []string
	client   Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a backend matched by the given model-id patterns.
func (r *Registry) Register(client Client, patterns ...string) {
	r.rules = append(r.rules, rule{patterns: patterns, client: client})
}

// SetFallback sets the backend used when no pattern matches.
func (r *Registry) SetFallback(client Client) {
	r.fallback = client
}

// ClientFor selects the backend serving the given model identifier.
func (r *Registry) ClientFor(modelID string) (Client, error) {
	m := strings.ToLower(modelID)
	for _, rule := range r.rules {
		for _, p := range rule.patterns {
			if strings.Contains(m, p) {
				return rule.client, nil
			}
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, &model.ProviderError{
		Backend: "registry",
		Cause:   errors.New("unsupported model: " + modelID),
	}
}

// Backends returns the names of all registered backends.
func (r *Registry) Backends() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(c Client) {
		if c != nil && !seen[c.Name()] {
			seen[c.Name()] = true
			names = append(names, c.Name())
		}
	}
	for _, rule := range r.rules {
		add(rule.client)
	}
	add(r.fallback)
	return names
}

// ModelInfo describes one catalog entry for the /api/models endpoint.
type ModelInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// Catalog lists every model of every registered backend.
func (r *Registry) Catalog() []ModelInfo {
	seen := make(map[string]bool)
	var out []ModelInfo
	add := func(c Client) {
		if c == nil || seen[c.Name()] {
			return
		}
		seen[c.Name()] = true
		for _, id := range c.Models() {
			out = append(out, ModelInfo{ID: id, Provider: c.Name()})
		}
	}
	for _, rule := range r.rules {
		add(rule.client)
	}
	add(r.fallback)
	return out
}
