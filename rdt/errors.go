package rdt

import (
	"errors"
	"net"
)

var (
	// ErrTimeout is returned when the retry budget of a handshake point or
	// of the data phase is exhausted.
	ErrTimeout = errors.New("rdt: retry budget exhausted")
	// ErrMalformedFrame is returned by UnmarshalFrame for datagrams that do
	// not hold a well-formed frame.
	ErrMalformedFrame = errors.New("rdt: malformed frame")
	// ErrUnexpectedFrame marks a valid frame of the wrong kind at a protocol
	// step.
	ErrUnexpectedFrame = errors.New("rdt: unexpected frame")
	// ErrChannel matches every *ChannelError.
	ErrChannel = errors.New("rdt: channel failure")
	// ErrMessageTooLarge is returned when a message does not fit the int32
	// length field of a START frame.
	ErrMessageTooLarge = errors.New("rdt: message exceeds maximum length")

	// errExpired is the outcome of a single bounded wait that saw nothing.
	errExpired = errors.New("rdt: wait expired")
)

// ChannelError is a non-timeout I/O failure of the underlying channel. It is
// never retried; the transfer is aborted and the error handed to the caller.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string { return "rdt: channel " + e.Op + ": " + e.Err.Error() }
func (e *ChannelError) Unwrap() error { return e.Err }
func (e *ChannelError) Is(target error) bool {
	return target == ErrChannel
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
