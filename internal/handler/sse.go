package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/streamchat-ai/chat-backend/internal/model"
)

// setSSEHeaders prepares the response for server-sent events.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
}

// writeSSE serializes one stream event as `data: <JSON>` and flushes it
// immediately.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event model.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
