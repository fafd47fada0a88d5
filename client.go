package mcpconn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ClientOption is a function that configures a client.
type ClientOption func(*Client)

// Client drives the connection lifecycle of an MCP session. It owns the
// connect/handshake sequence, supervises the live session's receive loop, and
// delivers lifecycle notifications to subscribers.
//
// A Client must be created using NewClient() and requires Connect() to be
// called before the session-dependent methods can be used. A terminated
// session is never resurrected; calling Connect again establishes a fresh
// session with its own lifecycle.
type Client struct {
	info         Info
	capabilities ClientCapabilities
	transport    ClientTransport

	protocolVersion       string
	initializationTimeout time.Duration
	writeTimeout          time.Duration
	readTimeout           time.Duration
	pingInterval          time.Duration
	pingTimeoutThreshold  int
	retryableTransport    bool

	logger *slog.Logger
	events *dispatcher

	state atomic.Int32

	sessMu sync.RWMutex
	sess   *clientSession
}

// clientSession holds the state of one connect-to-disconnect lifecycle. The
// disconnectFired flag is the single piece of state shared by the concurrent
// termination paths; everything else is either written once during the
// handshake or owned by a single goroutine.
type clientSession struct {
	conn Session

	protocolVersion    string
	serverInfo         Info
	serverCapabilities ServerCapabilities
	instructions       string

	disposing       atomic.Bool
	disconnectFired atomic.Bool
	stopOnce        sync.Once

	// receiveDone is closed after the receive loop exits and receiveErr is
	// recorded. The disconnection monitor blocks on it.
	receiveDone chan struct{}
	receiveErr  error

	// failCause carries a locally detected fault (e.g. exceeded ping
	// threshold) into the monitor's classification. Written at most once,
	// before the transport is stopped.
	failCause error
	failOnce  sync.Once

	pendingMu sync.Mutex
	pending   map[string]chan JSONRPCMessage

	writeTimeout time.Duration
	logger       *slog.Logger
}

var (
	defaultInitializationTimeout = 30 * time.Second
	defaultWriteTimeout          = 30 * time.Second
	defaultReadTimeout           = 30 * time.Second

	defaultPingTimeoutThreshold = 3
)

// WithProtocolVersion pins the exact protocol version the server must echo in
// its initialize response. Without this option any version from the client's
// supported set is accepted.
func WithProtocolVersion(version string) ClientOption {
	return func(c *Client) {
		c.protocolVersion = version
	}
}

// WithCapabilities sets the capability declaration sent during the handshake.
func WithCapabilities(capabilities ClientCapabilities) ClientOption {
	return func(c *Client) {
		c.capabilities = capabilities
	}
}

// WithInitializationTimeout bounds the initialize exchange. When the deadline
// fires before the caller's own context, Connect fails with
// ErrHandshakeTimeout rather than a plain cancellation.
func WithInitializationTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.initializationTimeout = timeout
	}
}

// WithWriteTimeout sets the timeout for individual message sends.
func WithWriteTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.writeTimeout = timeout
	}
}

// WithReadTimeout sets the timeout for awaiting a response to a request.
func WithReadTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.readTimeout = timeout
	}
}

// WithPingInterval enables a keepalive ping on the established session. Zero,
// the default, disables pinging.
func WithPingInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.pingInterval = interval
	}
}

// WithPingTimeoutThreshold sets how many consecutive ping failures are
// tolerated before the session is terminated.
func WithPingTimeoutThreshold(threshold int) ClientOption {
	return func(c *Client) {
		c.pingTimeoutThreshold = threshold
	}
}

// WithRetryableTransport marks transport-open failures as retryable in the
// ConnectionError notifications they produce. By default only handshake-stage
// failures are reported retryable.
func WithRetryableTransport() ClientOption {
	return func(c *Client) {
		c.retryableTransport = true
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new client for the given transport. The info parameter
// identifies this client to servers during the handshake.
//
// The client will not be connected until Connect is called.
func NewClient(info Info, transport ClientTransport, options ...ClientOption) *Client {
	c := &Client{
		info:      info,
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}

	if c.initializationTimeout == 0 {
		c.initializationTimeout = defaultInitializationTimeout
	}
	if c.writeTimeout == 0 {
		c.writeTimeout = defaultWriteTimeout
	}
	if c.readTimeout == 0 {
		c.readTimeout = defaultReadTimeout
	}
	if c.pingTimeoutThreshold == 0 {
		c.pingTimeoutThreshold = defaultPingTimeoutThreshold
	}

	c.events = newDispatcher(c.logger)

	return c
}

// OnConnected registers a callback invoked after each successful handshake.
// Callbacks registered after a session connected do not receive that
// session's event retroactively.
func (c *Client) OnConnected(fn func(ConnectedInfo)) Subscription {
	return c.events.subscribeConnected(fn)
}

// OnDisconnected registers a callback invoked when a session terminates. The
// callback runs exactly once per session, no matter which path detected the
// termination first.
func (c *Client) OnDisconnected(fn func(DisconnectedInfo)) Subscription {
	return c.events.subscribeDisconnected(fn)
}

// OnConnectionError registers a callback for non-terminal connection
// problems: failed connect attempts and failed keepalive pings.
func (c *Client) OnConnectionError(fn func(ConnectionErrorInfo)) Subscription {
	return c.events.subscribeConnectionError(fn)
}

// Connect opens the transport and performs the initialize handshake. On
// success the session's receive loop and disconnection monitor are running
// and the Connected notification has been delivered.
//
// A failure after the transport opened tears the connection down again and is
// reported both as the returned error and through the notification surfaces:
// ConnectionError always, Disconnected additionally since a live transport
// was lost. Cancelling ctx aborts the handshake but never an already
// established session.
func (c *Client) Connect(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	conn, err := c.transport.Connect(ctx)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		terr := &TransportError{Err: err}
		c.events.fireConnectionError(ConnectionErrorInfo{Err: terr, Retryable: c.retryableTransport})
		return terr
	}

	cs := &clientSession{
		conn:         conn,
		receiveDone:  make(chan struct{}),
		pending:      make(map[string]chan JSONRPCMessage),
		writeTimeout: c.writeTimeout,
		logger:       c.logger,
	}

	// The receive loop lives for as long as the transport connection does. It
	// is intentionally detached from ctx: a caller-side handshake timeout
	// must never tear down a receive loop that is already functioning.
	go cs.receive()

	c.state.Store(int32(StateInitializing))

	if err := c.handshake(ctx, cs); err != nil {
		c.teardownFailedHandshake(cs, err)
		return err
	}

	c.sessMu.Lock()
	c.sess = cs
	c.sessMu.Unlock()

	c.state.Store(int32(StateConnected))

	// Connected is delivered before the monitor exists, so even a session
	// that dies during the handshake's last message cannot get its
	// Disconnected out first.
	c.events.fireConnected(ConnectedInfo{
		Timestamp:       time.Now(),
		ServerInfo:      cs.serverInfo,
		ProtocolVersion: cs.protocolVersion,
	})

	go c.supervise(cs)
	if c.pingInterval > 0 {
		go c.keepalive(cs)
	}

	c.logger.Info("session established",
		"sessionID", conn.ID(),
		"server", cs.serverInfo.Name,
		"protocolVersion", cs.protocolVersion)

	return nil
}

// handshake runs the initialize exchange under the dedicated initialization
// deadline. The deadline is layered over the caller's context with its own
// cause so the two cancellations stay distinguishable.
func (c *Client) handshake(ctx context.Context, cs *clientSession) error {
	hCtx, hCancel := context.WithTimeoutCause(ctx, c.initializationTimeout, ErrHandshakeTimeout)
	defer hCancel()

	requested := c.protocolVersion
	if requested == "" {
		requested = latestProtocolVersion
	}

	paramsBs, err := json.Marshal(initializeParams{
		ProtocolVersion: requested,
		Capabilities:    c.capabilities,
		ClientInfo:      c.info,
	})
	if err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to marshal initialize params: %w", err)}
	}

	res, err := cs.call(hCtx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  methodInitialize,
		Params:  paramsBs,
	})
	if err != nil {
		return &HandshakeError{Err: err}
	}
	if res.Error != nil {
		return &HandshakeError{Err: fmt.Errorf("initialize error: %w", res.Error)}
	}

	var result initializeResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to unmarshal initialize result: %w", err)}
	}

	if c.protocolVersion != "" {
		if result.ProtocolVersion != c.protocolVersion {
			return &HandshakeError{Err: &VersionMismatchError{
				Requested: c.protocolVersion,
				Got:       result.ProtocolVersion,
			}}
		}
	} else if !slices.Contains(supportedProtocolVersions, result.ProtocolVersion) {
		return &HandshakeError{Err: &VersionMismatchError{Got: result.ProtocolVersion}}
	}

	if err := cs.notify(hCtx, methodNotificationsInitialized, nil); err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to send initialized notification: %w", err)}
	}

	cs.protocolVersion = result.ProtocolVersion
	cs.serverInfo = result.ServerInfo
	cs.serverCapabilities = result.Capabilities
	cs.instructions = result.Instructions

	return nil
}

// teardownFailedHandshake releases a transport that opened successfully but
// never completed its handshake. The transport was live, so observers get the
// full failure sequence: ConnectionError first, then the session's single
// Disconnected.
func (c *Client) teardownFailedHandshake(cs *clientSession, cause error) {
	c.state.Store(int32(StateDisconnected))

	c.events.fireConnectionError(ConnectionErrorInfo{Err: cause, Retryable: true})
	c.events.fireDisconnected(&cs.disconnectFired, DisconnectedInfo{
		Timestamp: time.Now(),
		Err:       cause,
	})

	cs.disposing.Store(true)
	cs.stop()
	<-cs.receiveDone
}

// supervise is the disconnection monitor: one goroutine per session, blocked
// on the receive loop's completion signal rather than polling. It classifies
// the termination and races the other paths for the session's fired flag.
func (c *Client) supervise(cs *clientSession) {
	<-cs.receiveDone

	info := DisconnectedInfo{Timestamp: time.Now()}
	switch {
	case cs.disposing.Load():
		// Explicit local dispose; no error by definition.
	case cs.failCause != nil:
		info.Err = cs.failCause
	case cs.receiveErr != nil:
		info.Err = cs.receiveErr
	default:
		info.Err = ErrTerminated
	}

	c.state.Store(int32(StateDisconnected))
	c.events.fireDisconnected(&cs.disconnectFired, info)
	c.clearSession(cs)

	if info.Err != nil {
		c.logger.Warn("session terminated", "sessionID", cs.conn.ID(), "err", info.Err)
	}
}

// keepalive pings the server on the configured interval. Consecutive failures
// past the threshold terminate the session with the ping error as the
// recorded fault.
func (c *Client) keepalive(cs *clientSession) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	failed := 0
	for {
		select {
		case <-cs.receiveDone:
			return
		case <-ticker.C:
			wCtx, wCancel := context.WithTimeout(context.Background(), c.writeTimeout)
			err := cs.ping(wCtx)
			wCancel()
			if err == nil {
				failed = 0
				continue
			}

			failed++
			c.logger.Error("failed to send ping", "err", err, "consecutiveFailures", failed)
			c.events.fireConnectionError(ConnectionErrorInfo{Err: err, Retryable: true})

			if failed > c.pingTimeoutThreshold {
				cs.fail(fmt.Errorf("too many ping failures: %w", err))
				return
			}
		}
	}
}

// Dispose terminates the established session gracefully. The Disconnected
// notification is delivered before the transport resources are released, and
// a second Dispose is a no-op producing no additional notification.
//
// Dispose acts on the currently established session only; a Connect still in
// its handshake is not interrupted.
func (c *Client) Dispose() {
	c.sessMu.Lock()
	cs := c.sess
	c.sess = nil
	c.sessMu.Unlock()

	if cs == nil {
		return
	}

	cs.disposing.Store(true)

	c.state.Store(int32(StateDisconnected))
	c.events.fireDisconnected(&cs.disconnectFired, DisconnectedInfo{Timestamp: time.Now()})

	cs.stop()
	<-cs.receiveDone
}

// IsConnected reports whether an established session is currently usable. It
// never fails; a dead or missing session simply reads as false.
func (c *Client) IsConnected() bool {
	cs := c.session()
	return cs != nil && !cs.disconnectFired.Load() && cs.conn.Alive()
}

// State returns the lifecycle state of the most recent session.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ServerInfo returns the server identity reported during the handshake.
// Returns ErrNotConnected before a session is established.
func (c *Client) ServerInfo() (Info, error) {
	cs := c.session()
	if cs == nil {
		return Info{}, ErrNotConnected
	}
	return cs.serverInfo, nil
}

// ServerCapabilities returns the capability set reported during the
// handshake. Returns ErrNotConnected before a session is established.
func (c *Client) ServerCapabilities() (ServerCapabilities, error) {
	cs := c.session()
	if cs == nil {
		return ServerCapabilities{}, ErrNotConnected
	}
	return cs.serverCapabilities, nil
}

// ServerInstructions returns the usage instructions the server attached to
// its initialize response. Returns ErrNotConnected before a session is
// established.
func (c *Client) ServerInstructions() (string, error) {
	cs := c.session()
	if cs == nil {
		return "", ErrNotConnected
	}
	return cs.instructions, nil
}

// NegotiatedVersion returns the protocol version agreed during the
// handshake. Returns ErrNotConnected before a session is established.
func (c *Client) NegotiatedVersion() (string, error) {
	cs := c.session()
	if cs == nil {
		return "", ErrNotConnected
	}
	return cs.protocolVersion, nil
}

// Call sends a request over the established session and decodes the result
// into result, which may be nil when the caller only cares about success. The
// request can be cancelled via the context.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	cs := c.session()
	if cs == nil {
		return ErrNotConnected
	}

	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		paramsBs, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		msg.Params = paramsBs
	}

	rCtx, rCancel := context.WithTimeout(ctx, c.readTimeout)
	defer rCancel()

	res, err := cs.call(rCtx, msg)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("result error: %w", res.Error)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(res.Result, result); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// Notify sends a notification over the established session. No response is
// expected.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	cs := c.session()
	if cs == nil {
		return ErrNotConnected
	}
	return cs.notify(ctx, method, params)
}

// Ping sends a protocol ping and waits for the server's reply.
func (c *Client) Ping(ctx context.Context) error {
	cs := c.session()
	if cs == nil {
		return ErrNotConnected
	}
	return cs.ping(ctx)
}

func (c *Client) session() *clientSession {
	c.sessMu.RLock()
	defer c.sessMu.RUnlock()
	return c.sess
}

func (c *Client) clearSession(cs *clientSession) {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if c.sess == cs {
		c.sess = nil
	}
}

// receive consumes the transport's message stream for the life of the
// session: responses are routed to their pending waiters and server pings are
// answered. The fault that ended the stream, if any, is recorded before
// receiveDone closes so the monitor reads it race-free.
func (cs *clientSession) receive() {
	defer func() {
		cs.receiveErr = cs.conn.Err()
		cs.failPending()
		close(cs.receiveDone)
	}()

	for msg := range cs.conn.Messages() {
		if msg.JSONRPC != JSONRPCVersion {
			cs.logger.Error("invalid jsonrpc version", "version", msg.JSONRPC)
			continue
		}

		switch {
		case msg.Method == methodPing:
			go cs.answerPing(msg.ID)
		case msg.Method == "" && msg.ID != "":
			cs.deliver(msg)
		default:
			// Requests and notifications beyond the lifecycle surface belong
			// to the capability layer; drop them here.
			cs.logger.Debug("ignoring message", "method", msg.Method)
		}
	}
}

func (cs *clientSession) answerPing(id MustString) {
	ctx, cancel := context.WithTimeout(context.Background(), cs.writeTimeout)
	defer cancel()

	err := cs.conn.Send(ctx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  json.RawMessage("{}"),
	})
	if err != nil {
		cs.logger.Error("failed to answer ping", "err", err)
	}
}

func (cs *clientSession) call(ctx context.Context, msg JSONRPCMessage) (JSONRPCMessage, error) {
	msgID := uuid.New().String()
	msg.ID = MustString(msgID)

	results := make(chan JSONRPCMessage, 1)
	cs.pendingMu.Lock()
	if cs.pending == nil {
		cs.pendingMu.Unlock()
		return JSONRPCMessage{}, ErrNotConnected
	}
	cs.pending[msgID] = results
	cs.pendingMu.Unlock()
	defer cs.dropPending(msgID)

	sCtx, sCancel := context.WithTimeout(ctx, cs.writeTimeout)
	defer sCancel()

	if err := cs.conn.Send(sCtx, msg); err != nil {
		return JSONRPCMessage{}, err
	}

	select {
	case res := <-results:
		return res, nil
	case <-cs.receiveDone:
		if cs.receiveErr != nil {
			return JSONRPCMessage{}, cs.receiveErr
		}
		return JSONRPCMessage{}, ErrTerminated
	case <-ctx.Done():
		// Cause distinguishes a layered deadline (e.g. the initialization
		// timeout) from the caller's own cancellation.
		return JSONRPCMessage{}, context.Cause(ctx)
	}
}

func (cs *clientSession) notify(ctx context.Context, method string, params any) error {
	notif := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		paramsBs, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		notif.Params = paramsBs
	}

	sCtx, sCancel := context.WithTimeout(ctx, cs.writeTimeout)
	defer sCancel()

	if err := cs.conn.Send(sCtx, notif); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func (cs *clientSession) ping(ctx context.Context) error {
	res, err := cs.call(ctx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  methodPing,
	})
	if err != nil {
		return fmt.Errorf("failed to send ping: %w", err)
	}
	if res.Error != nil {
		return fmt.Errorf("error response: %w", res.Error)
	}
	return nil
}

func (cs *clientSession) deliver(msg JSONRPCMessage) {
	cs.pendingMu.Lock()
	results, ok := cs.pending[string(msg.ID)]
	if ok {
		delete(cs.pending, string(msg.ID))
	}
	cs.pendingMu.Unlock()

	if !ok {
		cs.logger.Debug("no waiter for response", "id", string(msg.ID))
		return
	}
	results <- msg
}

func (cs *clientSession) dropPending(msgID string) {
	cs.pendingMu.Lock()
	defer cs.pendingMu.Unlock()
	delete(cs.pending, msgID)
}

// failPending unblocks callers awaiting responses that can no longer arrive.
func (cs *clientSession) failPending() {
	cs.pendingMu.Lock()
	defer cs.pendingMu.Unlock()
	cs.pending = nil
}

// fail records a locally detected fault and stops the transport, letting the
// monitor classify the termination with the recorded cause.
func (cs *clientSession) fail(err error) {
	cs.failOnce.Do(func() {
		cs.failCause = err
	})
	cs.stop()
}

func (cs *clientSession) stop() {
	cs.stopOnce.Do(cs.conn.Stop)
}
