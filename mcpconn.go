package mcpconn

import (
	"context"
	"iter"
)

// ClientTransport provides the client-side communication layer for an MCP
// session. Implementations own the byte-level wire format; the Client only
// exchanges JSONRPCMessage values with the Session they produce.
type ClientTransport interface {
	// Connect opens a new connection to the server and returns the live
	// session. The context governs the connection attempt only; the returned
	// Session keeps receiving until Stop is called or the connection fails.
	Connect(ctx context.Context) (Session, error)
}

// Session represents one live connection produced by a ClientTransport. It is
// exclusively owned by the Client that obtained it; the Client guarantees
// Stop is called at most once.
type Session interface {
	// ID returns the unique identifier for this session.
	ID() string

	// Send transmits a message to the server.
	Send(ctx context.Context, msg JSONRPCMessage) error

	// Messages returns an iterator that yields messages received from the
	// server. The iteration ends when the session is stopped or the
	// connection is lost; Err reports which of the two it was.
	Messages() iter.Seq[JSONRPCMessage]

	// Alive reports whether the session's connection is still usable.
	Alive() bool

	// Err returns the fault that ended the Messages iteration, or nil if it
	// ended cleanly. Only valid after the iteration has stopped.
	Err() error

	// Stop closes the session and releases the underlying connection.
	Stop()
}

// Subscription is the handle returned when registering a lifecycle callback.
// Cancel removes the callback; it is safe to call more than once.
type Subscription struct {
	cancel func()
}

// Cancel removes the subscribed callback. Callbacks already in flight may
// still complete.
func (s Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
