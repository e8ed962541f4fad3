package workflow

import "errors"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindNotFound
	KindConflict
	KindDependency
)

// Error is the caller-visible failure of an orchestrated step. Message is safe
// to return to API clients; Err keeps the internal cause for logs only.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or 0 for unclassified errors.
func KindOf(err error) Kind {
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Kind
	}
	return 0
}

// MessageOf returns the caller-visible message of err. Unclassified errors get
// a generic message so internal detail never leaks to API clients.
func MessageOf(err error) string {
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Message
	}
	return "internal server error"
}
