// Package apperrors defines the error taxonomy shared between the AI
// services and the HTTP handlers. Handlers map these to status codes;
// services never write HTTP responses themselves.
package apperrors

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrNoCredential is returned when neither the caller nor the server
	// has an API key for the upstream model.
	ErrNoCredential = errors.New("no API key available")

	// ErrQuotaExceeded is returned when the shared-key daily budget is spent.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrLedgerUpdate is returned when the quota counter could not be
	// written back. The request must not proceed to the paid upstream call.
	ErrLedgerUpdate = errors.New("failed to record quota usage")

	// ErrEmptyGeneration is returned when the upstream call succeeded but
	// carried no candidate text.
	ErrEmptyGeneration = errors.New("model returned an empty generation")
)

// QuotaExceededError reports a spent shared-key budget along with the
// counts clients display.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded (%d/%d)", e.Used, e.Limit)
}

// Is makes errors.Is(err, ErrQuotaExceeded) match.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// InvalidPromptError reports a prompt rejected before any upstream call.
type InvalidPromptError struct {
	Reason string
}

func (e *InvalidPromptError) Error() string {
	return fmt.Sprintf("invalid prompt: %s", e.Reason)
}

// NewInvalidPrompt builds an InvalidPromptError with the given reason.
func NewInvalidPrompt(reason string) *InvalidPromptError {
	return &InvalidPromptError{Reason: reason}
}

// ResponseParseError reports a model response that could not be coerced
// into the expected JSON shape. RawExcerpt carries a truncated prefix of
// the original text so the prompt/response mismatch can be diagnosed.
type ResponseParseError struct {
	RawExcerpt string
	Cause      error
}

func (e *ResponseParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("could not parse AI response: %v", e.Cause)
	}
	return "could not parse AI response"
}

func (e *ResponseParseError) Unwrap() error {
	return e.Cause
}

// maxRawExcerpt bounds how much raw model output is echoed back in errors.
const maxRawExcerpt = 500

// NewResponseParse builds a ResponseParseError, truncating raw to a
// diagnostic-sized excerpt. The cut lands on a rune boundary so the
// excerpt stays valid UTF-8.
func NewResponseParse(raw string, cause error) *ResponseParseError {
	if len(raw) > maxRawExcerpt {
		cut := maxRawExcerpt
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return &ResponseParseError{RawExcerpt: raw, Cause: cause}
}
