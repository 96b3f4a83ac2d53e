package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies provider failures. The market data service keys its
// stale-fallback behavior off this classification.
type ErrorKind string

const (
	ErrKindTransport  ErrorKind = "transport"  // network/timeout/5xx, retried with backoff
	ErrKindAuth       ErrorKind = "auth"       // invalid credentials, fatal
	ErrKindValidation ErrorKind = "validation" // malformed upstream payload
	ErrKindRateLimit  ErrorKind = "rate_limit" // local or upstream quota exhausted
	ErrKindNotFound   ErrorKind = "not_found"  // no data for the given parameters
)

// ProviderError is the typed error raised at the provider boundary.
type ProviderError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration // set for rate-limit errors when known
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewTransportError wraps a network/timeout/5xx failure.
func NewTransportError(msg string, err error) *ProviderError {
	return &ProviderError{Kind: ErrKindTransport, Message: msg, Err: err}
}

// NewAuthError marks a credential failure. Never retried.
func NewAuthError(msg string) *ProviderError {
	return &ProviderError{Kind: ErrKindAuth, Message: msg}
}

// NewValidationError marks a payload that failed typed decoding.
func NewValidationError(msg string, err error) *ProviderError {
	return &ProviderError{Kind: ErrKindValidation, Message: msg, Err: err}
}

// NewRateLimitError marks quota exhaustion, local or upstream.
func NewRateLimitError(msg string, retryAfter time.Duration) *ProviderError {
	return &ProviderError{Kind: ErrKindRateLimit, Message: msg, RetryAfter: retryAfter}
}

// NewNotFoundError marks an empty upstream result.
func NewNotFoundError(msg string) *ProviderError {
	return &ProviderError{Kind: ErrKindNotFound, Message: msg}
}

// KindOf extracts the error kind, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// RetryAfterOf extracts the retry-after hint from a rate-limit error.
func RetryAfterOf(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// IsFallbackable reports whether the service should attempt a stale-cache
// fallback for err (rate-limit and transport failures only).
func IsFallbackable(err error) bool {
	k := KindOf(err)
	return k == ErrKindRateLimit || k == ErrKindTransport
}
