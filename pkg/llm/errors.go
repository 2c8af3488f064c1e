package llm

import (
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
)

// ErrorType classifies an upstream failure.
type ErrorType string

const (
	// ErrorTypeUpstream is an HTTP-level rejection from the provider. The
	// status code and response body are preserved verbatim.
	ErrorTypeUpstream ErrorType = "upstream"
	// ErrorTypeTransport covers failures before an HTTP status existed
	// (connection refused, timeout, DNS).
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeUnknown is anything the classifier could not place.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error is a structured upstream failure. Body carries the provider's
// error response verbatim so callers can surface it; it never contains the
// credential.
type Error struct {
	Type       ErrorType
	StatusCode int
	Body       string
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error: HTTP %d: %s", e.Type, e.StatusCode, e.Body)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %v", e.Type, e.Cause)
	}
	return fmt.Sprintf("%s error", e.Type)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ClassifyError maps provider SDK errors onto the gateway's taxonomy.
// Already-classified errors pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	var openaiAPIErr *openai.APIError
	if errors.As(err, &openaiAPIErr) {
		return &Error{
			Type:       ErrorTypeUpstream,
			StatusCode: openaiAPIErr.HTTPStatusCode,
			Body:       openaiAPIErr.Message,
			Cause:      err,
		}
	}

	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return &Error{
			Type:       ErrorTypeUpstream,
			StatusCode: openaiReqErr.HTTPStatusCode,
			Body:       openaiReqErr.Error(),
			Cause:      err,
		}
	}

	var anthropicAPIErr *anthropic.APIError
	if errors.As(err, &anthropicAPIErr) {
		return &Error{
			Type:       ErrorTypeUpstream,
			StatusCode: httpStatusForAnthropic(anthropicAPIErr),
			Body:       anthropicAPIErr.Message,
			Cause:      err,
		}
	}

	var anthropicReqErr *anthropic.RequestError
	if errors.As(err, &anthropicReqErr) {
		return &Error{
			Type:       ErrorTypeUpstream,
			StatusCode: anthropicReqErr.StatusCode,
			Body:       anthropicReqErr.Error(),
			Cause:      err,
		}
	}

	return &Error{Type: ErrorTypeTransport, Cause: err}
}

// httpStatusForAnthropic maps the SDK's typed API errors onto the HTTP
// status the provider uses for them.
func httpStatusForAnthropic(apiErr *anthropic.APIError) int {
	switch {
	case apiErr.IsAuthenticationErr():
		return 401
	case apiErr.IsPermissionErr():
		return 403
	case apiErr.IsNotFoundErr():
		return 404
	case apiErr.IsRateLimitErr():
		return 429
	case apiErr.IsOverloadedErr():
		return 529
	case apiErr.IsApiErr():
		return 500
	default:
		return 400
	}
}
