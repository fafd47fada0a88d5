package mcpconn

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConnected is returned when an operation requires an established
	// session and there is none.
	ErrNotConnected = errors.New("not connected")

	// ErrHandshakeTimeout is reported when the initialize exchange exceeds the
	// configured initialization timeout. It is distinguishable from a
	// caller-initiated cancellation of Connect.
	ErrHandshakeTimeout = errors.New("initialization timeout exceeded")

	// ErrTerminated is reported through the Disconnected notification when the
	// receive loop ends without an explicit Dispose and without a recorded
	// fault, such as the server closing the connection cleanly.
	ErrTerminated = errors.New("connection terminated unexpectedly")
)

// TransportError indicates the byte transport could not be opened. It is
// returned by Connect before any session exists, so no Disconnected
// notification accompanies it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport connect: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HandshakeError indicates the initialize exchange failed after the transport
// was already open. The wrapped cause may be ErrHandshakeTimeout, a
// *VersionMismatchError, the caller's cancellation, or a protocol-level
// failure such as an error response or a malformed result.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("initialize handshake: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// VersionMismatchError indicates the server answered the initialize request
// with a protocol version this client does not accept. Requested is empty
// when no exact version was pinned and the server's version simply fell
// outside the supported set.
type VersionMismatchError struct {
	Requested string
	Got       string
}

func (e *VersionMismatchError) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("protocol version mismatch: requested %s, server offered %s", e.Requested, e.Got)
	}
	return fmt.Sprintf("unsupported protocol version %s, supported: %s",
		e.Got, strings.Join(supportedProtocolVersions, ", "))
}
