// Package handler provides the HTTP surface of the chat backend.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeTypedError maps pipeline errors to HTTP status codes.
func writeTypedError(w http.ResponseWriter, err error) {
	var extractionErr *model.ExtractionError
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrOwnership):
		writeError(w, http.StatusForbidden, model.ErrOwnership.Error())
	case errors.Is(err, model.ErrAdmission):
		writeError(w, http.StatusTooManyRequests, model.ErrAdmission.Error())
	case errors.As(err, &extractionErr):
		writeError(w, http.StatusBadRequest, extractionErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// validConversationID reports whether id is a well-formed identifier.
func validConversationID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
