package model

// StreamEvent is one event on a turn's live output channel. Exactly one of
// the three shapes is populated: a content fragment, the done flag, or an
// error message. A turn emits zero or more fragments followed by exactly one
// terminal event.
type StreamEvent struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Fragment returns a content event.
func Fragment(content string) StreamEvent {
	return StreamEvent{Content: content}
}

// DoneEvent returns the successful terminal event.
func DoneEvent() StreamEvent {
	return StreamEvent{Done: true}
}

// ErrorEvent returns the failed terminal event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Error: message}
}

// Terminal reports whether the event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Done || e.Error != ""
}
