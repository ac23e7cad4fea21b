package handler

import (
	"net/http"

	"github.com/streamchat-ai/chat-backend/internal/journal"
	"github.com/streamchat-ai/chat-backend/internal/llm"
)

// HealthHandler reports service capability and status flags.
type HealthHandler struct {
	registry     *llm.Registry
	journal      journal.Journal
	storeBackend string
	visionReady  bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(registry *llm.Registry, jnl journal.Journal, storeBackend string, visionReady bool) *HealthHandler {
	return &HealthHandler{
		registry:     registry,
		journal:      jnl,
		storeBackend: storeBackend,
		visionReady:  visionReady,
	}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"store":    h.storeBackend,
		"backends": h.registry.Backends(),
		"features": map[string]bool{
			"streaming":         true,
			"file_upload":       true,
			"vision_processing": h.visionReady,
			"journal":           h.journal.Connected(),
		},
	})
}

// Models handles GET /api/models
func (h *HealthHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Catalog())
}
