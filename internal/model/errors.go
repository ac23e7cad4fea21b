package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the turn pipeline. Handlers map these to HTTP status
// codes; everything else is treated as internal.
var (
	// ErrValidation marks client-fixable input problems.
	ErrValidation = errors.New("validation failed")

	// ErrOwnership covers both "not found" and "not owned" so that callers
	// cannot probe for the existence of another user's conversation.
	ErrOwnership = errors.New("chat not found or access denied")

	// ErrAdmission marks rate-limit rejection before any side effect.
	ErrAdmission = errors.New("rate limit exceeded")
)

// ValidationError wraps a cause under ErrValidation.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ExtractionError indicates uploaded file content could not be converted to
// text. It aborts the turn before the user message is persisted.
type ExtractionError struct {
	Filename string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract content from %s: %v", e.Filename, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates an upstream LLM failure: auth, quota, network,
// timeout, or a malformed response.
type ProviderError struct {
	Backend string
	Cause   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Backend, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
