// Package apperr carries the error kinds shared between services, the
// websocket layer and the HTTP handlers, so each layer can map a failure
// to its own wire representation.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthMissing
	KindConflict
	KindBadState
	KindForbidden
	KindNotFound
	KindAlreadyConnected
	KindDictionaryUnavailable
	KindIllegalState
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthMissing:
		return "auth_missing"
	case KindConflict:
		return "conflict"
	case KindBadState:
		return "bad_state"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindAlreadyConnected:
		return "already_connected"
	case KindDictionaryUnavailable:
		return "dictionary_unavailable"
	case KindIllegalState:
		return "illegal_state"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error

	// Fields holds per-field validation messages keyed by field name,
	// rendered by the HTTP layer as {location: {field: [messages]}}.
	Fields map[string][]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation builds a field-level validation error for a single field.
func Validation(field, msg string) *Error {
	return &Error{
		Kind:   KindValidation,
		Msg:    fmt.Sprintf("%s: %s", field, msg),
		Fields: map[string][]string{field: {msg}},
	}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FieldsOf returns the validation field map from err, or nil.
func FieldsOf(err error) map[string][]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
