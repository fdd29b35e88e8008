package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation_error"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindBadRequest Kind = "bad_request"
	KindInternal   Kind = "internal_invariant_violation"
	KindRetryable  Kind = "retryable"
)

// Error is the failure type returned by every core operation. Code is the
// stable machine-readable identifier surfaced to callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Message == "" || e.Message == e.Code {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// HTTPStatus maps the kind to the suggested transport status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may safely resend the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindRetryable
}

func newError(kind Kind, code, message string) *Error {
	if message == "" {
		message = code
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Error {
	return newError(KindValidation, "validation_error", message)
}

// NotFound uses code as the public error, e.g. "item_not_found".
func NotFound(code string) *Error {
	return newError(KindNotFound, code, "")
}

func Conflict(message string) *Error {
	return newError(KindConflict, "conflict", message)
}

// Duplicate is a conflict with a specific code, e.g. "sku_already_exists".
func Duplicate(code, message string) *Error {
	return newError(KindConflict, code, message)
}

// BadRequest is a business-rule violation with a specific code.
func BadRequest(code, message string) *Error {
	return newError(KindBadRequest, code, message)
}

// Invariant marks a broken precondition this service guarantees itself. The
// code is logged, never rendered.
func Invariant(code string) *Error {
	return newError(KindInternal, code, "")
}

func Retryable(message string) *Error {
	return newError(KindRetryable, "try_again", message)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From converts any error into an *Error. Context expiry is retryable,
// anything unknown becomes an opaque internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Retryable("request timed out").Wrap(err)
	}
	return Invariant("internal_error").Wrap(err)
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
