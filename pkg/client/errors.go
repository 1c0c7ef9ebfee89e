package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	// KindMalformedRequest means the request could not be built. Unreachable
	// for well-formed input.
	KindMalformedRequest ErrorKind = "malformed_request"

	// KindInvalidResponse means the transport returned no usable HTTP response.
	KindInvalidResponse ErrorKind = "invalid_response"

	// KindHTTPStatus represents a non-2xx status.
	KindHTTPStatus ErrorKind = "http_status"

	// KindMalformedBody means the body could not be decoded.
	KindMalformedBody ErrorKind = "malformed_body"

	// KindTransport represents connectivity failures and timeouts.
	KindTransport ErrorKind = "transport"

	// KindRateLimited means the request quota is exhausted.
	KindRateLimited ErrorKind = "rate_limited"
)

// APIError is the typed error returned by FetchPage and FetchDetail.
// Cancellation is never an APIError: it surfaces as context.Canceled.
type APIError struct {
	Kind ErrorKind

	// StatusCode is set for KindHTTPStatus and KindRateLimited.
	StatusCode int

	// Detail is a diagnostic for KindMalformedBody and KindTransport.
	Detail string

	// RetryAfter is set for KindRateLimited when the reset time is known.
	RetryAfter *time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var msg string
	switch e.Kind {
	case KindMalformedRequest:
		msg = "malformed request"
	case KindInvalidResponse:
		msg = "invalid response"
	case KindHTTPStatus:
		msg = fmt.Sprintf("unexpected status %d", e.StatusCode)
	case KindMalformedBody:
		msg = "malformed response body: " + e.Detail
	case KindTransport:
		msg = "transport failure: " + e.Detail
	case KindRateLimited:
		msg = "rate limited"
		if e.RetryAfter != nil {
			msg += fmt.Sprintf(" (retry after %s)", *e.RetryAfter)
		}
	default:
		msg = string(e.Kind)
	}

	if e.Err != nil && e.Kind != KindTransport {
		return fmt.Sprintf("github %s: %v", msg, e.Err)
	}
	return "github " + msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Description returns the message shown to users for this error.
func (e *APIError) Description() string {
	switch e.Kind {
	case KindMalformedRequest:
		return "Invalid URL."
	case KindInvalidResponse:
		return "Invalid response from server."
	case KindHTTPStatus:
		return fmt.Sprintf("Server returned an error (HTTP %d).", e.StatusCode)
	case KindMalformedBody:
		return "Failed to parse server response: " + e.Detail
	case KindTransport:
		return e.Detail
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("API rate limit exceeded. Try again in %d seconds.", int(*e.RetryAfter/time.Second))
		}
		return "API rate limit exceeded. Please try again later."
	default:
		return e.Error()
	}
}

// Describe returns the user-facing message for any error returned by the
// client. Errors that are not APIErrors fall back to their Error text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Description()
	}
	return err.Error()
}

// KindOf returns the kind of an APIError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsCancelled reports whether err means the caller abandoned the operation.
// Deadlines are transport timeouts, not cancellations.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
