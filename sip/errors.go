package sip

import "github.com/ghettovoice/siptx/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument         = errorutil.ErrInvalidArgument
	ErrMethodNotAllowed  Error = "request method not allowed"
	ErrInvalidMessage    Error = "invalid message"
	ErrInvalidStatusCode Error = "invalid status code"
)

// Transaction errors.
const (
	// ErrInvalidStateTransition is returned when an event is not allowed in the current transaction state.
	// The transaction state stays unchanged.
	ErrInvalidStateTransition Error = "invalid state transition"
	// ErrMissingBranch is returned when a request has no Via branch to derive the transaction ID from.
	ErrMissingBranch Error = "missing Via branch"
	// ErrMissingToTag is returned when an ACK to a 2xx response has no To tag.
	ErrMissingToTag Error = "missing To tag"
	// ErrMissingResponse is returned when a retransmission requires a cached response that does not exist.
	ErrMissingResponse Error = "missing cached response"
	// ErrTransactionDisposed is returned on calls to a transaction disposed before termination.
	ErrTransactionDisposed Error = "transaction disposed"
)

// ErrTransport is a base error of all transport failures reported by transactions.
const ErrTransport Error = "transport error"

// Error is a constant sentinel error of the package.
type Error = errorutil.Error

// NewInvalidArgumentError returns [ErrInvalidArgument] with an optional cause or message.
func NewInvalidArgumentError(args ...any) error {
	return errorutil.InvalidArgument(args...) //errtrace:skip
}

// NewTransportError returns [ErrTransport] wrapping the cause returned by a [Transport].
func NewTransportError(args ...any) error {
	return errorutil.Wrap(ErrTransport, args...) //errtrace:skip
}

func newInvalidStatusCodeError(args ...any) error {
	return errorutil.Wrap(ErrInvalidStatusCode, args...) //errtrace:skip
}

// newInvalidMessageError matches both [ErrInvalidArgument] and [ErrInvalidMessage].
func newInvalidMessageError(format string, args ...any) error {
	return NewInvalidArgumentError(errorutil.Wrap(ErrInvalidMessage, append([]any{format}, args...)...)) //errtrace:skip
}

func newMissingResponseError(format string, args ...any) error {
	return errorutil.Wrap(ErrMissingResponse, append([]any{format}, args...)...) //errtrace:skip
}
