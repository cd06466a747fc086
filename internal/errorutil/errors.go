// Package errorutil provides constant sentinel errors and helpers to attach details to them.
package errorutil

//go:generate go tool errtrace -w .

import (
	"errors"
	"fmt"
)

// Error is a constant sentinel error.
type Error string

func (e Error) Error() string { return string(e) }

// Wrap returns an error matching sentinel with [errors.Is].
//
// The first argument is either a cause error, which also stays reachable with [errors.Is],
// or a message, formatted with the rest of arguments when there are any.
// A cause already matching sentinel is returned as is.
func Wrap(sentinel Error, args ...any) error {
	if len(args) == 0 {
		return sentinel //errtrace:skip
	}

	switch v := args[0].(type) {
	case error:
		if errors.Is(v, sentinel) {
			return v //errtrace:skip
		}
		return &detailedError{sentinel: sentinel, cause: v} //errtrace:skip
	case string:
		if len(args) > 1 {
			v = fmt.Sprintf(v, args[1:]...)
		}
		return &detailedError{sentinel: sentinel, detail: v} //errtrace:skip
	default:
		return sentinel //errtrace:skip
	}
}

type detailedError struct {
	sentinel Error
	detail   string
	cause    error
}

func (e *detailedError) Error() string {
	if e.cause != nil {
		return string(e.sentinel) + ": " + e.cause.Error()
	}
	return string(e.sentinel) + ": " + e.detail
}

func (e *detailedError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.sentinel, e.cause}
	}
	return []error{e.sentinel}
}

// ErrInvalidArgument is returned when a caller passes a nil, malformed or unsupported value.
const ErrInvalidArgument Error = "invalid argument"

// InvalidArgument wraps [ErrInvalidArgument], see [Wrap] for arguments.
func InvalidArgument(args ...any) error {
	return Wrap(ErrInvalidArgument, args...) //errtrace:skip
}
