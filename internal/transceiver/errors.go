package transceiver

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to match them through the typed errors below.
var (
	// ErrBind indicates the socket could not be bound. It is fatal.
	ErrBind = errors.New("bind failed")

	// ErrSend indicates a datagram could not be sent.
	ErrSend = errors.New("send failed")

	// ErrReceive indicates a single read failed. The receive loop logs it and
	// keeps going.
	ErrReceive = errors.New("receive failed")

	// ErrClosed is returned by operations after Stop.
	ErrClosed = errors.New("transceiver closed")

	// ErrNotListening is returned by ReceiveLoop before Listen.
	ErrNotListening = errors.New("transceiver is not listening")

	// ErrAlreadyListening is returned when Listen is called twice.
	ErrAlreadyListening = errors.New("transceiver is already listening")

	// ErrInvalidDestination is returned when a destination cannot be resolved.
	ErrInvalidDestination = errors.New("invalid destination address")
)

// BindError reports a failure to bind the local socket.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind udp %s: %v", e.Addr, e.Err)
}

// Unwrap exposes both ErrBind and the underlying cause to errors.Is.
func (e *BindError) Unwrap() []error {
	return []error{ErrBind, e.Err}
}

// SendError reports a failure to send one datagram.
type SendError struct {
	Dst string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send udp to %s: %v", e.Dst, e.Err)
}

// Unwrap exposes both ErrSend and the underlying cause to errors.Is.
func (e *SendError) Unwrap() []error {
	return []error{ErrSend, e.Err}
}

// ReceiveError reports a failed read in the receive loop.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("receive udp: %v", e.Err)
}

// Unwrap exposes both ErrReceive and the underlying cause to errors.Is.
func (e *ReceiveError) Unwrap() []error {
	return []error{ErrReceive, e.Err}
}
