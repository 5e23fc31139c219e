package marionette

import (
	"errors"
	"fmt"
)

// Protocol violations. These mean client and server disagree about the wire
// format and the connection should be dropped.
var (
	ErrUnexpectedType       = errors.New("marionette: unexpected message type")
	ErrInvalidMsgID         = errors.New("marionette: invalid message id")
	ErrInvalidResponseArray = errors.New("marionette: invalid response array")
	ErrInvalidErrorObject   = errors.New("marionette: invalid error object")
)

// ErrNotSupported is returned for operations the negotiated command set lacks.
var ErrNotSupported = errors.New("marionette: operation not supported by this server")

// CallError is an error object returned by the server for a command,
// e.g. "no such element" or a script exception.
type CallError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnsupportedProtocolError is returned by Dial when the server greeting
// announces a protocol version other than 3.
type UnsupportedProtocolError struct {
	Version int64
}

// Error implements the error interface.
func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("marionette: unsupported protocol version %d", e.Version)
}

// UnsupportedContextError is returned when the server reports a context
// other than chrome or content.
type UnsupportedContextError struct {
	Value string
}

// Error implements the error interface.
func (e *UnsupportedContextError) Error() string {
	return fmt.Sprintf("marionette: unsupported context %q", e.Value)
}

// IsFatal reports whether err leaves the connection in an unknown state.
// Server-side command failures, unknown context values and unsupported
// operations are not fatal; transport and protocol errors are.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return false
	}
	var ctxErr *UnsupportedContextError
	if errors.As(err, &ctxErr) {
		return false
	}
	return !errors.Is(err, ErrNotSupported)
}
