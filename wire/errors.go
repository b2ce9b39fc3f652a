package wire

import (
	"context"
	"errors"
	"fmt"
)

// ServerError represents an ERR reply.
// The server rejected the request but the session is intact.
//
// Connection handling: Connection can be REUSED
type ServerError struct {
	Reason string
}

func (e *ServerError) Error() string {
	return "heapd: " + e.Reason
}

// Is reports whether target is a ServerError with the same reason, so that
// errors.Is(err, ErrNotFound) works on decoded replies.
func (e *ServerError) Is(target error) bool {
	t, ok := target.(*ServerError)
	return ok && t.Reason == e.Reason
}

// ShouldCloseConnection returns false - ERR replies don't corrupt the session
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// Sentinel ERR replies, usable with errors.Is.
var (
	ErrAlreadyExists  = &ServerError{Reason: ReasonAlreadyExists}
	ErrNoMemory       = &ServerError{Reason: ReasonNoMemory}
	ErrNotFound       = &ServerError{Reason: ReasonNotFound}
	ErrBadBase64      = &ServerError{Reason: ReasonBadBase64}
	ErrOutOfBounds    = &ServerError{Reason: ReasonOutOfBounds}
	ErrUnknownCommand = &ServerError{Reason: ReasonUnknownCommand}
	ErrEmpty          = &ServerError{Reason: ReasonEmpty}
)

// ParseError represents a reply line that does not follow the grammar.
//
// Connection handling: Connection should be CLOSED as state is uncertain
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps I/O errors from connection operations.
//
// Connection handling: Connection is already broken, CLOSE and potentially RECONNECT
type ConnectionError struct {
	Op  string // Operation that failed (read, write, dial)
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// InvalidTokenError is returned when a request token cannot be put on the
// wire: it is empty or contains a space or line terminator.
//
// Connection handling: Connection is still valid, nothing was written
type InvalidTokenError struct {
	Token   string
	Message string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token %q: %s", e.Token, e.Message)
}

// ShouldCloseConnection returns false - the request was rejected client-side
func (e *InvalidTokenError) ShouldCloseConnection() bool {
	return false
}

// NumberError is returned by ParseUint for tokens that are not unsigned
// decimal integers.
type NumberError struct {
	Token string
	Err   error
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("invalid number %q: %v", e.Token, e.Err)
}

func (e *NumberError) Unwrap() error {
	return e.Err
}

// ErrLineTooLong is returned by ReadLine when a limit is set and the line
// exceeds it.
var ErrLineTooLong = errors.New("wire: line too long")

// ErrorWithConnectionState is implemented by errors that know whether the
// connection survives them.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
// A bare context error means the caller gave up before any I/O, so the
// connection is intact. Context errors hit during I/O arrive wrapped in a
// ConnectionError. Other unknown errors are treated conservatively.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}
