// Package errors provides standardized error handling patterns for botkit components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// the client runtime: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing). It also defines
// the platform API error taxonomy that the request executor surfaces.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: network timeouts, connection issues, rate limiting (retry recommended)
//   - Invalid: malformed payloads, terminal API responses, bad configuration (do not retry)
//   - Fatal: unrecoverable states (stop processing)
//
// The classification integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and wrapping chains.
//
// # API Error Taxonomy
//
// Non-2xx platform responses become typed errors:
//
//	var nf *errors.NotFound
//	if stderrors.As(err, &nf) {
//	    // entity is gone, drop it from the cache
//	}
//
// HTTPError is the generic terminal form. Forbidden (403) and NotFound (404)
// are distinguished types that unwrap to HTTPError. ServerError and
// RateLimited report retryable conditions that persisted through the attempt
// ceiling.
//
// # Wrapping
//
// Wrap errors with component context for debugging:
//
//	if err := conn.Send(ctx, frame); err != nil {
//	    return errors.WrapTransient(err, "Gateway", "Send", "frame write")
//	}
//
// The wrap pattern is "component.method: action failed: <cause>".
package errors
