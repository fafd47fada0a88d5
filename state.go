package mcpconn

import "fmt"

// ConnectionState represents the lifecycle phase of a client's session.
//
// The state machine is strictly ordered:
//
//	StateIdle → StateConnecting → StateInitializing → StateConnected → StateDisconnected
//
// StateDisconnected is terminal for a session; a subsequent Connect starts a
// fresh session rather than resurrecting the old one. Any failure during
// StateConnecting or StateInitializing also lands in StateDisconnected.
type ConnectionState int

const (
	// StateIdle is the initial state before Connect is called.
	StateIdle ConnectionState = iota
	// StateConnecting indicates the byte transport is being opened.
	StateConnecting
	// StateInitializing indicates the initialize exchange is in progress.
	StateInitializing
	// StateConnected indicates the handshake completed and the session is usable.
	StateConnected
	// StateDisconnected indicates the session has terminated.
	StateDisconnected
)

// String returns a string representation of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateInitializing:
		return "Initializing"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
