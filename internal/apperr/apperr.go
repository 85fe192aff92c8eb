// Package apperr defines the canonical error taxonomy shared by the provider
// layer and the HTTP boundary. Provider errors are created here and
// translated to the wire envelope exactly once, at the request boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code enumerates the canonical error codes of the wire envelope.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeUpstreamError    Code = "UPSTREAM_ERROR"
	CodeRateLimit        Code = "RATE_LIMIT"
	CodeProviderDown     Code = "PROVIDER_DOWN"
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeValidationError  Code = "VALIDATION_ERROR"
	CodeInsufficientData Code = "INSUFFICIENT_DATA"
)

// Error is a classified application error. Detail is safe to log but is not
// sent to clients unless the code maps to a 4xx.
type Error struct {
	Code       Code
	Message    string
	Detail     string
	RetryAfter int // seconds; only meaningful for RATE_LIMIT
	cause      error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the code to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstreamError:
		return http.StatusBadGateway
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeProviderDown:
		return http.StatusServiceUnavailable
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeValidationError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the operation that produced this error may be
// retried by the provider's outbound HTTP layer. Nothing above that layer
// retries.
func (e *Error) Retryable() bool {
	return e.Code == CodeUpstreamError || e.Code == CodeRateLimit
}

// NotFound builds a NOT_FOUND error for a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Upstream wraps a failed registry call. The cause is kept for logging but
// never leaks to clients.
func Upstream(msg string, cause error) *Error {
	return &Error{Code: CodeUpstreamError, Message: msg, cause: cause}
}

// RateLimited builds a RATE_LIMIT error carrying a retry-after hint.
func RateLimited(msg string, retryAfter int) *Error {
	return &Error{Code: CodeRateLimit, Message: msg, RetryAfter: retryAfter}
}

// ProviderDown marks a provider construction or connectivity failure.
func ProviderDown(msg string, cause error) *Error {
	return &Error{Code: CodeProviderDown, Message: msg, cause: cause}
}

// Validation builds a VALIDATION_ERROR for malformed input.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidationError, Message: msg}
}

// BadRequest builds a BAD_REQUEST error.
func BadRequest(msg string) *Error {
	return &Error{Code: CodeBadRequest, Message: msg}
}

// As extracts an *Error from err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsRetryable reports whether err is a retryable provider error.
func IsRetryable(err error) bool {
	ae := As(err)
	return ae != nil && ae.Retryable()
}
