// Package apperr is the error taxonomy shared by every layer. Components
// return *Error values; only the HTTP error middleware turns them into
// responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindUnauthorized
	KindInvalidProject
	KindInvalidTask
	KindNotFound
	KindValidation
	KindBadRequest
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidProject:
		return "invalid_project"
	case KindInvalidTask:
		return "invalid_task"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	default:
		return "internal_failure"
	}
}

// Status maps a kind onto the HTTP status it is rendered with.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindInvalidProject, KindInvalidTask, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Errors  []FieldError
	Err     error
	Stack   string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// newError captures a stack for internal failures only.
func newError(kind Kind, message string) *Error {
	e := &Error{Kind: kind, Message: message}
	if kind == KindInternal {
		e.Stack = string(debug.Stack())
	}
	return e
}

func Unauthenticated(message string) *Error { return newError(KindUnauthenticated, message) }

func Unauthorized(message string) *Error { return newError(KindUnauthorized, message) }

func InvalidProject() *Error { return newError(KindInvalidProject, "Invalid Project") }

func InvalidTask() *Error { return newError(KindInvalidTask, "Invalid Task") }

func NotFound(message string) *Error { return newError(KindNotFound, message) }

func BadRequest(message string) *Error { return newError(KindBadRequest, message) }

func Conflict(message string) *Error { return newError(KindConflict, message) }

func Validation(message string, fields ...FieldError) *Error {
	e := newError(KindValidation, message)
	e.Errors = fields
	return e
}

// Internal wraps an unexpected failure. The message is what callers see;
// the wrapped error is only logged.
func Internal(message string, err error) *Error {
	e := newError(KindInternal, message)
	e.Err = err
	return e
}

// As extracts an *Error from err, treating anything else as an internal
// failure.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Something went wrong", err)
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
