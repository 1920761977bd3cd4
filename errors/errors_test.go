package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"rate limited", ErrRateLimited, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid payload", ErrInvalidPayload, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"server error after retries", &ServerError{HTTPError: HTTPError{Status: 502}, Attempts: 5}, true},
		{"rate limited after retries", &RateLimited{HTTPError: HTTPError{Status: 429}}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"invalid payload", ErrInvalidPayload, false},
		{"fatal in message", fmt.Errorf("fatal system error occurred"), true},
		{"panic in message", fmt.Errorf("panic: system failure"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid payload", ErrInvalidPayload, true},
		{"decode failed", ErrDecodeFailed, true},
		{"unknown event", ErrUnknownEvent, true},
		{"http error", &HTTPError{Status: 400, Message: "bad request"}, true},
		{"forbidden", &Forbidden{HTTPError: HTTPError{Status: 403}}, true},
		{"not found", &NotFound{HTTPError: HTTPError{Status: 404}}, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"connection timeout", ErrConnectionTimeout, ErrorTransient},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"invalid payload", ErrInvalidPayload, ErrorInvalid},
		{"forbidden", &Forbidden{HTTPError: HTTPError{Status: 403}}, ErrorInvalid},
		{"server error", &ServerError{HTTPError: HTTPError{Status: 500}, Attempts: 5}, ErrorTransient},
		{"unknown error", fmt.Errorf("unknown error"), ErrorTransient},
		{"classified error", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassifiedError(t *testing.T) {
	baseErr := fmt.Errorf("base error")
	ce := newClassified(ErrorTransient, baseErr, "testComponent", "testOperation", "custom message")

	if ce.Class != ErrorTransient {
		t.Errorf("expected ErrorTransient, got %v", ce.Class)
	}

	if ce.Component != "testComponent" {
		t.Errorf("expected testComponent, got %s", ce.Component)
	}

	if ce.Operation != "testOperation" {
		t.Errorf("expected testOperation, got %s", ce.Operation)
	}

	if ce.Error() != "custom message" {
		t.Errorf("expected 'custom message', got %s", ce.Error())
	}

	if !errors.Is(ce, baseErr) {
		t.Error("classified error should unwrap to base error")
	}
}

func TestWrap_Format(t *testing.T) {
	baseErr := fmt.Errorf("dial tcp: refused")
	err := Wrap(baseErr, "Gateway", "Connect", "websocket dial")

	expected := "Gateway.Connect: websocket dial failed: dial tcp: refused"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, baseErr) {
		t.Error("wrapped error should unwrap to base error")
	}

	if Wrap(nil, "Gateway", "Connect", "websocket dial") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestFromResponse_Taxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "forbidden with payload",
			status: 403,
			body:   `{"code":"ForbiddenError","message":"missing permission","meta":{"permission":"CanReadChats"}}`,
			check: func(t *testing.T, err error) {
				var fb *Forbidden
				if !errors.As(err, &fb) {
					t.Fatalf("expected *Forbidden, got %T", err)
				}
				if fb.Code != "ForbiddenError" || fb.Message != "missing permission" {
					t.Errorf("payload not decoded: %+v", fb.HTTPError)
				}
				var he *HTTPError
				if !errors.As(err, &he) {
					t.Error("Forbidden should unwrap to *HTTPError")
				}
			},
		},
		{
			name:   "not found",
			status: 404,
			body:   `{"code":"NotFound","message":"no such channel"}`,
			check: func(t *testing.T, err error) {
				var nf *NotFound
				if !errors.As(err, &nf) {
					t.Fatalf("expected *NotFound, got %T", err)
				}
				if nf.Status != 404 {
					t.Errorf("expected status 404, got %d", nf.Status)
				}
			},
		},
		{
			name:   "generic with non-json body",
			status: 400,
			body:   "Bad Request",
			check: func(t *testing.T, err error) {
				var he *HTTPError
				if !errors.As(err, &he) {
					t.Fatalf("expected *HTTPError, got %T", err)
				}
				if he.Message != "Bad Request" {
					t.Errorf("raw body should become message, got %q", he.Message)
				}
				if he.Code != "" {
					t.Errorf("non-json body should leave code empty, got %q", he.Code)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.check(t, FromResponse(test.status, []byte(test.body)))
		})
	}
}

func TestRateLimited_Error(t *testing.T) {
	rl := &RateLimited{
		HTTPError:  HTTPError{Status: 429, Message: "slow down"},
		RetryAfter: 3 * time.Second,
	}
	if got := rl.Error(); got != "429 Too Many Requests: slow down (retry after 3s)" {
		t.Errorf("unexpected message: %q", got)
	}
}
