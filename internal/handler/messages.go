package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/streamchat-ai/chat-backend/internal/middleware"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/service"
	"github.com/streamchat-ai/chat-backend/pkg/logger"
	"github.com/streamchat-ai/chat-backend/pkg/metrics"
)

// TurnHandler handles the streaming chat-turn endpoints.
type TurnHandler struct {
	pipeline *service.TurnPipeline
	logger   *logger.Logger

	maxUploadBytes int64
}

// NewTurnHandler creates a new turn handler.
func NewTurnHandler(pipeline *service.TurnPipeline, log *logger.Logger, maxUploadBytes int64) *TurnHandler {
	return &TurnHandler{
		pipeline:       pipeline,
		logger:         log,
		maxUploadBytes: maxUploadBytes,
	}
}

// Send handles POST /api/chats/{id}/messages. The response is a
// server-sent-event stream of content fragments terminated by exactly one
// done or error event.
func (h *TurnHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if !validConversationID(conversationID) {
		writeError(w, http.StatusForbidden, model.ErrOwnership.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.stream(w, r, service.TurnInput{
		ConversationID: conversationID,
		UserID:         userID,
		Message:        req.Message,
		Model:          req.Model,
	})
}

// stream runs the pipeline and relays its output channel to the wire.
func (h *TurnHandler) stream(w http.ResponseWriter, r *http.Request, input service.TurnInput) {
	ctx := r.Context()
	log := h.logger.WithRequest(middleware.GetCorrelationID(ctx), input.UserID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.pipeline.Run(ctx, input)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	setSSEHeaders(w)
	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	for event := range events {
		if err := writeSSE(w, flusher, event); err != nil {
			// Client gone; the pipeline notices via ctx and stops.
			log.Info("SSE client disconnected",
				zap.String("conversation_id", input.ConversationID),
			)
			return
		}
	}
}
