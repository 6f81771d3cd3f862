package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping. Every error that crosses the
// application boundary carries exactly one Kind.
type Kind int

const (
	BadRequest   Kind = iota // malformed or policy-violating input
	Forbidden                // operation not permitted in current state
	NotFound                 // referenced record does not exist
	InvalidValue             // downstream transport rejected or failed
	Internal                 // unexpected store/infrastructure failure
)

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

// Is lets errors.Is match two apperr errors by Kind and Message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Internal for anything
// that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a Kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidValue:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
