package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimit is a 429 from the vendor. RetryAfter is zero when the vendor
// sent no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model rate limited, retry after %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("model rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers transport failures, 5xx responses and
// rejected credentials.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "model provider unavailable"
	}
	return fmt.Sprintf("model provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrInvalidResponse is a reply that failed structured-output validation.
// Content holds the reply when there was one; it is nil when the vendor
// envelope itself was unusable (no choices, no text block).
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	if e.Content == nil {
		return fmt.Sprintf("unusable model reply: %v", e.Err)
	}
	return fmt.Sprintf("model reply rejected (%d bytes): %v", len(e.Content), e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is a structured reply cut off at MaxTokens. Content
// holds the partial reply.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("model reply truncated at max tokens (%d bytes kept)", len(e.Content))
}

// ReplyContent returns the model reply carried by a rejected or truncated
// structured response. Grading hands that text to the feedback extractor
// instead of failing the request.
func ReplyContent(err error) (json.RawMessage, bool) {
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) && invalid.Content != nil {
		return invalid.Content, true
	}
	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) && truncated.Content != nil {
		return truncated.Content, true
	}
	return nil, false
}

// Transient reports whether another attempt at the same request could
// succeed. Cancellation, truncation and rejected replies that still carry
// content are final; an unusable envelope is worth one more try and is
// handled by the retry decorator.
func Transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	if _, ok := ReplyContent(err); ok {
		return false
	}
	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) {
		return false
	}
	// Rate limits, unavailable providers and untyped transport errors.
	return true
}
