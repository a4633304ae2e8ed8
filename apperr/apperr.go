// Package apperr defines the error kinds surfaced by the service and how
// each maps onto an HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindPrecondition
	KindAuthProvider
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindProfileMissing
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPrecondition:
		return "precondition"
	case KindAuthProvider:
		return "auth_provider"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindProfileMissing:
		return "profile_missing"
	}
	return "internal"
}

// Status is the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict, KindPrecondition, KindAuthProvider:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound, KindProfileMissing:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Error carries a kind, a caller-safe message and an optional cause that is
// only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }
func Precondition(msg string) *Error { return New(KindPrecondition, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }

func AuthProvider(msg string, err error) *Error {
	return Wrap(KindAuthProvider, msg, err)
}

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }

func ProfileMissing(msg string) *Error { return New(KindProfileMissing, msg) }

func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// KindOf reports the kind of err, defaulting to KindInternal for anything
// that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// PublicMessage is what the caller gets to see. Unclassified errors never
// leak their text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
