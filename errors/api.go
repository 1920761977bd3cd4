package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPError is the generic terminal error for a non-2xx platform API
// response. The platform reports failures as {code, message, meta}; when
// the body is not JSON the raw text becomes the message.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Meta    json.RawMessage
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	text := http.StatusText(e.Status)
	if e.Code != "" {
		return fmt.Sprintf("%d %s (code %s): %s", e.Status, text, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, text, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, text)
}

// Forbidden is returned for 403 responses. The token is valid but lacks
// permission for the operation; retrying cannot succeed.
type Forbidden struct {
	HTTPError
}

// Unwrap allows errors.As to reach the embedded HTTPError.
func (e *Forbidden) Unwrap() error { return &e.HTTPError }

// NotFound is returned for 404 responses.
type NotFound struct {
	HTTPError
}

// Unwrap allows errors.As to reach the embedded HTTPError.
func (e *NotFound) Unwrap() error { return &e.HTTPError }

// ServerError is returned when the retryable 5xx family (500, 502, 504,
// 524) persists through the attempt ceiling. It carries the last response
// seen and the number of attempts spent.
type ServerError struct {
	HTTPError
	Attempts int
}

// Error implements the error interface
func (e *ServerError) Error() string {
	return fmt.Sprintf("%s (after %d attempts)", e.HTTPError.Error(), e.Attempts)
}

// RateLimited is returned when 429 responses persist through the attempt
// ceiling. RetryAfter is the last server-provided wait, if any.
type RateLimited struct {
	HTTPError
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimited) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.HTTPError.Error(), e.RetryAfter)
	}
	return e.HTTPError.Error()
}

// apiErrorBody is the platform's error payload shape.
type apiErrorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

// FromResponse builds the typed API error for a non-2xx response body.
// 403 and 404 get their distinguished types; everything else is a plain
// HTTPError. Retry outcomes (ServerError, RateLimited) are constructed by
// the request executor once the attempt ceiling is reached.
func FromResponse(status int, body []byte) error {
	he := HTTPError{Status: status, Message: strings.TrimSpace(string(body))}

	var payload apiErrorBody
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		he.Code = payload.Code
		he.Message = payload.Message
		he.Meta = payload.Meta
	}

	switch status {
	case http.StatusForbidden:
		return &Forbidden{HTTPError: he}
	case http.StatusNotFound:
		return &NotFound{HTTPError: he}
	}
	return &he
}
