package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindForbidden    ErrorKind = "forbidden"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
)

// Error is a domain error. Code is a stable machine-readable identifier
// such as "not_your_turn"; Details carries extra context for callers.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(kind ErrorKind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) with(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func notFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func invalid(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func forbidden(code, format string, args ...any) *Error {
	return newError(KindForbidden, code, format, args...)
}

func conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func invalidState(code, format string, args ...any) *Error {
	return newError(KindInvalidState, code, format, args...)
}

// KindOf returns the domain kind of err, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the domain code of err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
