package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/streamchat-ai/chat-backend/internal/middleware"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/service"
	"github.com/streamchat-ai/chat-backend/pkg/logger"
)

// ChatHandler handles conversation endpoints.
type ChatHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ConversationService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	convs, err := h.service.List(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

// Create handles POST /api/chats
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	// An empty body is valid; it creates a chat with the default title.
	var req model.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.service.Create(ctx, userID, &req)
	if err != nil {
		h.logger.Error("failed to create chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}

	writeJSON(w, http.StatusOK, &model.CreateChatResponse{ID: conv.ID, Title: conv.Title})
}

// Delete handles DELETE /api/chats/{id}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if !validConversationID(conversationID) {
		writeError(w, http.StatusForbidden, model.ErrOwnership.Error())
		return
	}

	if err := h.service.Delete(ctx, userID, conversationID); err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Messages handles GET /api/chats/{id}/messages. Ownership failures return
// an empty list so the endpoint never confirms a foreign conversation
// exists.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if !validConversationID(conversationID) {
		writeJSON(w, http.StatusOK, []model.Message{})
		return
	}

	msgs, err := h.service.Messages(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, model.ErrOwnership) {
			writeJSON(w, http.StatusOK, []model.Message{})
			return
		}
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}
