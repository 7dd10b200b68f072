package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error kinds
// --------------------------------------------------------------------------

var (
	// ErrTimeout is the request timeout kind. Every error caused by an expired
	// request deadline matches it via errors.Is
	ErrTimeout = errors.New("request timeout")

	// ErrConnectionClosed is returned for requests that were pending (or sent)
	// while their connection went inactive
	ErrConnectionClosed = errors.New("connection closed")

	// ErrShutdown is returned by all operations after the connection manager was destroyed
	ErrShutdown = errors.New("connection manager shut down")

	// ErrNotConnected is returned when no live connection exists for a host
	ErrNotConnected = errors.New("host not connected")

	// ErrDuplicateAck is returned if an acknowledgment id is already outstanding on a connection
	ErrDuplicateAck = errors.New("duplicate acknowledgment id")

	// ErrBlockingInEventLoop is returned if a blocking invocation is started on the
	// event loop of the connection it would wait for
	ErrBlockingInEventLoop = errors.New("blocking invocation on the connection's own event loop")

	// ErrFrameTooLarge is returned if a frame exceeds the configured maximum frame length
	ErrFrameTooLarge = errors.New("frame too large")
)

// FrameworkError marks failures of the RPC framework itself (as opposed to network noise).
// Framework errors are logged at error level.
type FrameworkError struct {
	Op  string
	Err error
}

func (e *FrameworkError) Error() string {
	return fmt.Sprintf("drpc %s: %v", e.Op, e.Err)
}

func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// NewFrameworkError wraps err as a framework error for the operation op
func NewFrameworkError(op string, err error) error {
	return &FrameworkError{Op: op, Err: err}
}

// IsFrameworkError reports whether err (or an error it wraps) is a FrameworkError
func IsFrameworkError(err error) bool {
	var fe *FrameworkError
	return errors.As(err, &fe)
}

// RemoteError is an application error returned by the peer in Response.Err
type RemoteError struct {
	Name    string // service.method
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error from %s: %s", e.Name, e.Message)
}
