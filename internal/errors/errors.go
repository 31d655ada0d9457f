// Package errors defines the typed error taxonomy shared by the progression
// layer services and the HTTP boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind int

const (
	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = iota
	// KindInvalidArgument marks caller bugs: negative amounts, empty
	// identifiers, malformed payloads.
	KindInvalidArgument
	// KindNotFound marks lookups of records that do not exist.
	KindNotFound
	// KindConflict marks operations rejected because of current state,
	// e.g. duplicate challenge completion.
	KindConflict
	// KindUnauthorized marks missing or invalid credentials.
	KindUnauthorized
	// KindStateCorruption marks operations that would drive persistent
	// state invalid, e.g. a debit below zero XP. These are refused, never
	// clamped.
	KindStateCorruption
)

// Error carries a kind alongside a message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind so callers can use errors.Is with the
// sentinel constructors below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument reports a precondition violation by the caller.
func InvalidArgument(format string, args ...interface{}) *Error {
	return newf(KindInvalidArgument, format, args...)
}

// NotFound reports a missing record.
func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

// Conflict reports an operation rejected by current state.
func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

// StateCorruption reports an operation that would corrupt persistent state.
func StateCorruption(format string, args ...interface{}) *Error {
	return newf(KindStateCorruption, format, args...)
}

// Internal wraps an unexpected failure.
func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from any error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindStateCorruption:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
