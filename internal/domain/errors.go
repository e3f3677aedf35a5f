package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the editor and the remote store
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindInvalidEdge ErrorKind = "invalid_edge"
	KindValidation  ErrorKind = "validation_failure"
	KindNetwork     ErrorKind = "network_failure"
	KindParse       ErrorKind = "parse_failure"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrInvalidEdge = &Error{Kind: KindInvalidEdge}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNetwork     = &Error{Kind: KindNetwork}
	ErrParse       = &Error{Kind: KindParse}
)

// Error is a classified failure
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds a classified error with a formatted message
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFoundf is Errorf(KindNotFound, ...)
func NotFoundf(op, format string, args ...any) *Error {
	return Errorf(KindNotFound, op, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
