package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for clients: whether a retry makes sense and
// which status code the boundary answers with.
type Kind int

const (
	// KindValidation - malformed or missing input, do not retry unchanged.
	KindValidation Kind = iota
	// KindConflict - an invariant blocks the request (already rostered
	// elsewhere, team locked); retry only after changing intent.
	KindConflict
	// KindAlreadyFilled - slot race lost; another slot may still be free.
	KindAlreadyFilled
	// KindNotFound - entity absent.
	KindNotFound
	// KindForbidden - caller lacks authority.
	KindForbidden
	// KindUpstream - store or transport failure, retryable with backoff.
	KindUpstream
)

// Error carries a client-safe message plus the wrapped cause. Handlers never
// leak raw store errors; they answer with Message and the mapped status.
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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error    { return New(KindValidation, message) }
func Conflict(message string) *Error      { return New(KindConflict, message) }
func AlreadyFilled(message string) *Error { return New(KindAlreadyFilled, message) }
func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Forbidden(message string) *Error     { return New(KindForbidden, message) }

// Upstream wraps a store or transport failure.
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// IsKind reports whether err resolves to the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps an error to the status code the boundary responds with.
// Unclassified errors are treated as internal failures.
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation, KindConflict, KindAlreadyFilled:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// ClientMessage returns the message safe to show a caller.
func ClientMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
