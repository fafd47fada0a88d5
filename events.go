package mcpconn

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectedInfo describes a successfully established session. It is
// constructed once per successful handshake and never mutated afterwards.
type ConnectedInfo struct {
	// Timestamp records when the handshake completed.
	Timestamp time.Time
	// ServerInfo identifies the server the session was established with.
	ServerInfo Info
	// ProtocolVersion is the version negotiated during the handshake.
	ProtocolVersion string
}

// DisconnectedInfo describes the termination of a session. A session emits
// exactly one DisconnectedInfo over its lifetime, regardless of how many
// paths race to terminate it.
type DisconnectedInfo struct {
	// Timestamp records when the termination was observed.
	Timestamp time.Time
	// Err is the fault that ended the session, or nil for a termination
	// requested through Dispose.
	Err error
}

// Graceful reports whether the session ended through an explicit Dispose
// call. A graceful termination carries no error.
func (d DisconnectedInfo) Graceful() bool {
	return d.Err == nil
}

// ConnectionErrorInfo describes a non-terminal connection problem, such as a
// failed connect attempt or a failed keepalive ping. Unlike Disconnected, it
// may be emitted any number of times per session.
type ConnectionErrorInfo struct {
	// Err is the problem that occurred.
	Err error
	// Retryable suggests whether retrying the operation may succeed.
	Retryable bool
}

// dispatcher owns lifecycle notification delivery. Subscriber callbacks are
// invoked synchronously from whichever goroutine triggers the event, each one
// isolated so a panicking subscriber cannot block the others or leak into the
// firing component.
type dispatcher struct {
	logger *slog.Logger

	mu           sync.Mutex
	nextID       int
	connected    map[int]func(ConnectedInfo)
	disconnected map[int]func(DisconnectedInfo)
	connErrors   map[int]func(ConnectionErrorInfo)
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	return &dispatcher{
		logger:       logger,
		connected:    make(map[int]func(ConnectedInfo)),
		disconnected: make(map[int]func(DisconnectedInfo)),
		connErrors:   make(map[int]func(ConnectionErrorInfo)),
	}
}

func (d *dispatcher) subscribeConnected(fn func(ConnectedInfo)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.connected[id] = fn
	return Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.connected, id)
	}}
}

func (d *dispatcher) subscribeDisconnected(fn func(DisconnectedInfo)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.disconnected[id] = fn
	return Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.disconnected, id)
	}}
}

func (d *dispatcher) subscribeConnectionError(fn func(ConnectionErrorInfo)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.connErrors[id] = fn
	return Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.connErrors, id)
	}}
}

func (d *dispatcher) fireConnected(info ConnectedInfo) {
	for _, fn := range snapshot(&d.mu, d.connected) {
		d.safeInvoke("connected", func() { fn(info) })
	}
}

// fireDisconnected delivers the Disconnected notification if and only if this
// call wins the session's fired flag. The dispose path, the disconnection
// monitor and the connector's handshake teardown all funnel through here;
// whichever reaches the flag first delivers, the rest are no-ops.
func (d *dispatcher) fireDisconnected(fired *atomic.Bool, info DisconnectedInfo) {
	if !fired.CompareAndSwap(false, true) {
		return
	}
	for _, fn := range snapshot(&d.mu, d.disconnected) {
		d.safeInvoke("disconnected", func() { fn(info) })
	}
}

func (d *dispatcher) fireConnectionError(info ConnectionErrorInfo) {
	for _, fn := range snapshot(&d.mu, d.connErrors) {
		d.safeInvoke("connection error", func() { fn(info) })
	}
}

func (d *dispatcher) safeInvoke(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("lifecycle subscriber panicked", "event", kind, "panic", r)
		}
	}()
	fn()
}

func snapshot[T any](mu *sync.Mutex, m map[int]T) []T {
	mu.Lock()
	defer mu.Unlock()

	fns := make([]T, 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}
