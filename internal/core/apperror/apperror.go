// Package apperror carries the engine's error taxonomy. Every error that
// crosses a service boundary has a Kind (which decides the HTTP status) and a
// stable Code (which callers switch on instead of parsing messages).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error for callers deciding whether to retry.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindRateLimited
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Generic codes shared across features.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConcurrentUpdate  = "CONCURRENT_UPDATE"
	CodeForbidden         = "FORBIDDEN"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUpstream          = "UPSTREAM_FAILURE"
	CodeInternal          = "INTERNAL_ERROR"
)

var (
	// ErrValidation matches any validation error.
	ErrValidation = &Error{Kind: KindValidation, Code: CodeValidation, Message: "validation failed"}
	// ErrInvalidTransition matches any rejected state machine transition.
	ErrInvalidTransition = &Error{Kind: KindConflict, Code: CodeInvalidTransition, Message: "invalid status transition"}
	// ErrConcurrentUpdate is returned when an optimistic write lost the race.
	ErrConcurrentUpdate = &Error{Kind: KindConflict, Code: CodeConcurrentUpdate, Message: "entity was modified concurrently"}
	// ErrForbidden matches cross-company or cross-customer access.
	ErrForbidden = &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "access to this record is not allowed"}
	// ErrRateLimited matches any rate limiter rejection.
	ErrRateLimited = &Error{Kind: KindRateLimited, Code: CodeRateLimited, Message: "rate limit exceeded"}
	// ErrUpstream matches any collaborator failure.
	ErrUpstream = &Error{Kind: KindUpstream, Code: CodeUpstream, Message: "upstream service failed"}
)

// Error is a structured engine error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields carries field-level detail for validation errors.
	Fields map[string]string
	// RetryAfter is set on rate limited errors.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by Code so sentinels survive added detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds a validation error with per-field detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Fields: fields}
}

// NotFound builds a not-found error with a feature specific code.
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Conflict builds a conflict error with a feature specific code.
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// InvalidTransition reports a rejected state machine move.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

// Forbidden reports a scope violation.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// RateLimited reports a limiter rejection with a retry hint.
func RateLimited(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Code: CodeRateLimited, Message: message, RetryAfter: retryAfter}
}

// Upstream wraps a collaborator failure.
func Upstream(service string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Code:    CodeUpstream,
		Message: service + " call failed",
		Err:     err,
	}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// As extracts the structured error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for unstructured errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
