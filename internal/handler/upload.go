package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/streamchat-ai/chat-backend/internal/middleware"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/service"
)

// multipartOverhead leaves room for form fields beyond the file itself.
const multipartOverhead = 64 * 1024

// Upload handles POST /api/chats/{id}/upload: multipart form with a file
// plus optional message, model and use_vision fields, answered with the
// same SSE stream as Send.
func (h *TurnHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if !validConversationID(conversationID) {
		writeError(w, http.StatusForbidden, model.ErrOwnership.Error())
		return
	}

	// Bound the whole body so an oversized upload is cut off at the cap
	// instead of being read into memory in full.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusBadRequest, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	useVision := strings.EqualFold(r.FormValue("use_vision"), "true")

	h.stream(w, r, service.TurnInput{
		ConversationID: conversationID,
		UserID:         userID,
		Message:        r.FormValue("message"),
		Model:          r.FormValue("model"),
		File: &service.FileUpload{
			Name:      header.Filename,
			Data:      data,
			UseVision: useVision,
		},
	})
}
