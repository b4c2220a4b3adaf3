// Package apperrors classifies failures so the HTTP layer can tell a caller
// whether to fix the input, stop trying, or retry.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindLocked
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindLocked:
		return "locked"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind to the status code returned to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindLocked:
		return http.StatusLocked
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...interface{}) error {
	return newError(KindValidation, nil, format, args...)
}

// ValidationFrom wraps an ozzo (or any) validation error.
func ValidationFrom(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func Conflict(format string, args ...interface{}) error {
	return newError(KindConflict, nil, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newError(KindNotFound, nil, format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newError(KindUnauthorized, nil, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newError(KindForbidden, nil, format, args...)
}

// Infrastructure wraps storage or network failures. The message shown to
// clients stays generic; the cause is kept for logs.
func Infrastructure(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return newError(KindInfrastructure, err, format, args...)
}

// Wrap attaches a kind to a sentinel error, keeping errors.Is working.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// PublicMessage is what an HTTP client is allowed to see.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	if appErr.Kind == KindInfrastructure {
		if appErr.Message != "" {
			return appErr.Message
		}
		return "internal server error"
	}
	return appErr.Error()
}
