package mcpconn_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MegaGrindStone/mcpconn"
)

// fakeSession is an in-memory Session implementation driven directly by
// tests: messages fed to incoming reach the client, messages the client
// sends appear on outgoing.
type fakeSession struct {
	id       string
	incoming chan mcpconn.JSONRPCMessage
	outgoing chan mcpconn.JSONRPCMessage

	err       error
	done      chan struct{}
	stopped   chan struct{}
	stopOnce  sync.Once
	failOnce  sync.Once
	alive     atomic.Bool
	mutePings atomic.Bool
}

func newFakeSession() *fakeSession {
	s := &fakeSession{
		id:       "fake-session",
		incoming: make(chan mcpconn.JSONRPCMessage, 10),
		outgoing: make(chan mcpconn.JSONRPCMessage, 10),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(ctx context.Context, msg mcpconn.JSONRPCMessage) error {
	select {
	case <-s.done:
		return errors.New("session is closed")
	case <-ctx.Done():
		return ctx.Err()
	case s.outgoing <- msg:
		return nil
	}
}

func (s *fakeSession) Messages() iter.Seq[mcpconn.JSONRPCMessage] {
	return func(yield func(mcpconn.JSONRPCMessage) bool) {
		defer s.alive.Store(false)
		for {
			select {
			case <-s.done:
				return
			case msg := <-s.incoming:
				if !yield(msg) {
					return
				}
			}
		}
	}
}

func (s *fakeSession) Alive() bool { return s.alive.Load() }

func (s *fakeSession) Err() error { return s.err }

func (s *fakeSession) Stop() {
	s.stopOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
		close(s.stopped)
	})
}

// fail simulates the connection dying with the given fault: the receive
// stream ends and Err reports the cause.
func (s *fakeSession) fail(err error) {
	s.failOnce.Do(func() {
		s.err = err
		s.stopOnce.Do(func() {
			s.alive.Store(false)
			close(s.done)
			close(s.stopped)
		})
	})
}

func (s *fakeSession) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

type fakeTransport struct {
	sess       *fakeSession
	connectErr error
}

func (t *fakeTransport) Connect(_ context.Context) (mcpconn.Session, error) {
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	return t.sess, nil
}

// serveHandshake answers the client's initialize request with the given
// protocol version and keeps answering pings until the session stops.
func serveHandshake(s *fakeSession, version string) {
	go func() {
		for {
			var msg mcpconn.JSONRPCMessage
			select {
			case <-s.done:
				return
			case msg = <-s.outgoing:
			}

			switch msg.Method {
			case "initialize":
				result, _ := json.Marshal(map[string]any{
					"protocolVersion": version,
					"capabilities":    map[string]any{},
					"serverInfo":      map[string]any{"name": "test-server", "version": "1.0"},
					"instructions":    "be nice",
				})
				s.incoming <- mcpconn.JSONRPCMessage{
					JSONRPC: mcpconn.JSONRPCVersion,
					ID:      msg.ID,
					Result:  result,
				}
			case "ping":
				if s.mutePings.Load() {
					continue
				}
				s.incoming <- mcpconn.JSONRPCMessage{
					JSONRPC: mcpconn.JSONRPCVersion,
					ID:      msg.ID,
					Result:  json.RawMessage("{}"),
				}
			case "notifications/initialized":
			}
		}
	}()
}

func connectedClient(t *testing.T, options ...mcpconn.ClientOption) (*mcpconn.Client, *fakeSession) {
	t.Helper()

	sess := newFakeSession()
	serveHandshake(sess, "2024-11-05")

	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: sess}, options...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cli.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return cli, sess
}

// lifecycleRecorder captures delivered notifications in order.
type lifecycleRecorder struct {
	mu     sync.Mutex
	events []string

	disconnected []mcpconn.DisconnectedInfo
	connErrors   []mcpconn.ConnectionErrorInfo
}

func (r *lifecycleRecorder) subscribe(cli *mcpconn.Client) {
	cli.OnConnected(func(mcpconn.ConnectedInfo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, "connected")
	})
	cli.OnDisconnected(func(info mcpconn.DisconnectedInfo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, "disconnected")
		r.disconnected = append(r.disconnected, info)
	})
	cli.OnConnectionError(func(info mcpconn.ConnectionErrorInfo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, "connection-error")
		r.connErrors = append(r.connErrors, info)
	})
}

func (r *lifecycleRecorder) sequence() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *lifecycleRecorder) waitFor(t *testing.T, event string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range r.sequence() {
			if ev == event {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got %v", event, r.sequence())
}

func TestConnect(t *testing.T) {
	sess := newFakeSession()
	serveHandshake(sess, "2024-11-05")

	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: sess})

	rec := &lifecycleRecorder{}
	rec.subscribe(cli)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cli.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Connected must already be observable by subscribers registered before
	// Connect returned.
	seq := rec.sequence()
	if len(seq) != 1 || seq[0] != "connected" {
		t.Errorf("got events %v, want [connected]", seq)
	}

	if !cli.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if got := cli.State(); got != mcpconn.StateConnected {
		t.Errorf("State() = %v, want %v", got, mcpconn.StateConnected)
	}

	info, err := cli.ServerInfo()
	if err != nil {
		t.Fatalf("ServerInfo() error = %v", err)
	}
	if info.Name != "test-server" {
		t.Errorf("ServerInfo().Name = %q, want %q", info.Name, "test-server")
	}

	version, err := cli.NegotiatedVersion()
	if err != nil {
		t.Fatalf("NegotiatedVersion() error = %v", err)
	}
	if version != "2024-11-05" {
		t.Errorf("NegotiatedVersion() = %q, want %q", version, "2024-11-05")
	}

	instructions, err := cli.ServerInstructions()
	if err != nil {
		t.Fatalf("ServerInstructions() error = %v", err)
	}
	if instructions != "be nice" {
		t.Errorf("ServerInstructions() = %q, want %q", instructions, "be nice")
	}

	cli.Dispose()
}

func TestConnectTransportFailure(t *testing.T) {
	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{connectErr: errors.New("connection refused")})

	rec := &lifecycleRecorder{}
	rec.subscribe(cli)

	err := cli.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() error = nil, want error")
	}

	var terr *mcpconn.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Connect() error = %v, want *TransportError", err)
	}

	// No transport was ever live, so only ConnectionError fires.
	seq := rec.sequence()
	if len(seq) != 1 || seq[0] != "connection-error" {
		t.Errorf("got events %v, want [connection-error]", seq)
	}
	if rec.connErrors[0].Retryable {
		t.Error("transport failures are not retryable by default")
	}
}

func TestConnectVersionPinned(t *testing.T) {
	tests := []struct {
		name          string
		requested     string
		serverVersion string
		wantErr       bool
	}{
		{
			name:          "exact match succeeds",
			requested:     "2024-11-05",
			serverVersion: "2024-11-05",
		},
		{
			name:          "mismatch fails",
			requested:     "2024-11-05",
			serverVersion: "2023-01-01",
			wantErr:       true,
		},
		{
			name:          "unpinned accepts supported version",
			serverVersion: "2024-10-07",
		},
		{
			name:          "unpinned rejects unknown version",
			serverVersion: "1999-01-01",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			serveHandshake(sess, tt.serverVersion)

			var options []mcpconn.ClientOption
			if tt.requested != "" {
				options = append(options, mcpconn.WithProtocolVersion(tt.requested))
			}
			cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
				&fakeTransport{sess: sess}, options...)

			rec := &lifecycleRecorder{}
			rec.subscribe(cli)

			err := cli.Connect(context.Background())
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Connect() error = %v", err)
				}
				cli.Dispose()
				return
			}

			var vErr *mcpconn.VersionMismatchError
			if !errors.As(err, &vErr) {
				t.Fatalf("Connect() error = %v, want *VersionMismatchError", err)
			}
			if vErr.Got != tt.serverVersion {
				t.Errorf("VersionMismatchError.Got = %q, want %q", vErr.Got, tt.serverVersion)
			}

			// A live transport failed its handshake: ConnectionError first,
			// then the session's single ungraceful Disconnected.
			seq := rec.sequence()
			want := []string{"connection-error", "disconnected"}
			if len(seq) != len(want) || seq[0] != want[0] || seq[1] != want[1] {
				t.Fatalf("got events %v, want %v", seq, want)
			}
			if !rec.connErrors[0].Retryable {
				t.Error("handshake failures should be retryable")
			}
			if rec.disconnected[0].Graceful() {
				t.Error("handshake teardown should not be graceful")
			}
			if !sess.isStopped() {
				t.Error("transport session should be released after handshake failure")
			}
		})
	}
}

func TestConnectHandshakeTimeout(t *testing.T) {
	sess := newFakeSession()
	// No handshake responder: the initialize request goes unanswered.

	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: sess},
		mcpconn.WithInitializationTimeout(50*time.Millisecond))

	err := cli.Connect(context.Background())
	if !errors.Is(err, mcpconn.ErrHandshakeTimeout) {
		t.Fatalf("Connect() error = %v, want ErrHandshakeTimeout", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Error("handshake timeout should not read as caller cancellation")
	}
}

func TestConnectCallerCancelled(t *testing.T) {
	sess := newFakeSession()

	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: sess})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := cli.Connect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, mcpconn.ErrHandshakeTimeout) {
		t.Error("caller cancellation should not read as handshake timeout")
	}
}

func TestDispose(t *testing.T) {
	cli, sess := connectedClient(t)

	rec := &lifecycleRecorder{}
	rec.subscribe(cli)

	var stoppedAtNotify atomic.Bool
	cli.OnDisconnected(func(mcpconn.DisconnectedInfo) {
		stoppedAtNotify.Store(sess.isStopped())
	})

	cli.Dispose()

	rec.waitFor(t, "disconnected")
	if !rec.disconnected[0].Graceful() {
		t.Errorf("Dispose() should disconnect gracefully, got err %v", rec.disconnected[0].Err)
	}
	if stoppedAtNotify.Load() {
		t.Error("Disconnected must be delivered before transport resources are released")
	}
	if !sess.isStopped() {
		t.Error("transport session should be released after Dispose")
	}
	if cli.IsConnected() {
		t.Error("IsConnected() = true after Dispose")
	}

	// A second Dispose is a no-op with no extra notification.
	cli.Dispose()
	if got := len(rec.sequence()); got != 1 {
		t.Errorf("got %d events after double Dispose, want 1", got)
	}
}

func TestReceiveFault(t *testing.T) {
	cli, sess := connectedClient(t)

	rec := &lifecycleRecorder{}
	rec.subscribe(cli)

	sess.fail(errors.New("transport closed"))

	rec.waitFor(t, "disconnected")
	info := rec.disconnected[0]
	if info.Graceful() {
		t.Error("fault termination should not be graceful")
	}
	if info.Err == nil || !strings.Contains(info.Err.Error(), "transport closed") {
		t.Errorf("DisconnectedInfo.Err = %v, want transport closed", info.Err)
	}
	if cli.IsConnected() {
		t.Error("IsConnected() = true after receive fault")
	}
}

func TestCleanRemoteCloseIsUngraceful(t *testing.T) {
	cli, sess := connectedClient(t)

	rec := &lifecycleRecorder{}
	rec.subscribe(cli)

	// Remote end closes cleanly without a local Dispose: still ungraceful,
	// with a synthesized cause.
	sess.Stop()

	rec.waitFor(t, "disconnected")
	if !errors.Is(rec.disconnected[0].Err, mcpconn.ErrTerminated) {
		t.Errorf("DisconnectedInfo.Err = %v, want ErrTerminated", rec.disconnected[0].Err)
	}
	if cli.IsConnected() {
		t.Error("IsConnected() = true after remote close")
	}
}

func TestDisconnectedFiresExactlyOnce(t *testing.T) {
	for range 50 {
		cli, sess := connectedClient(t)

		var fired atomic.Int32
		cli.OnDisconnected(func(mcpconn.DisconnectedInfo) {
			fired.Add(1)
		})

		var wg sync.WaitGroup
		wg.Add(2)
		start := make(chan struct{})
		go func() {
			defer wg.Done()
			<-start
			cli.Dispose()
		}()
		go func() {
			defer wg.Done()
			<-start
			sess.fail(errors.New("transport closed"))
		}()
		close(start)
		wg.Wait()

		// Both termination paths have finished; give the monitor a moment to
		// lose (or win) the race before counting.
		deadline := time.Now().Add(time.Second)
		for fired.Load() == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(5 * time.Millisecond)

		if got := fired.Load(); got != 1 {
			t.Fatalf("Disconnected fired %d times, want exactly 1", got)
		}
	}
}

func TestConnectedPrecedesDisconnected(t *testing.T) {
	// The session dies the instant the handshake's closing notification
	// arrives, so the receive loop is already finished while Connect is
	// still on its way out. Connected must still be observed first.
	for range 100 {
		sess := newFakeSession()
		go func() {
			for {
				var msg mcpconn.JSONRPCMessage
				select {
				case <-sess.done:
					return
				case msg = <-sess.outgoing:
				}

				switch msg.Method {
				case "initialize":
					result, _ := json.Marshal(map[string]any{
						"protocolVersion": "2024-11-05",
						"capabilities":    map[string]any{},
						"serverInfo":      map[string]any{"name": "test-server", "version": "1.0"},
					})
					sess.incoming <- mcpconn.JSONRPCMessage{
						JSONRPC: mcpconn.JSONRPCVersion,
						ID:      msg.ID,
						Result:  result,
					}
				case "notifications/initialized":
					sess.fail(errors.New("transport closed"))
					return
				}
			}
		}()

		cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
			&fakeTransport{sess: sess})

		rec := &lifecycleRecorder{}
		rec.subscribe(cli)

		if err := cli.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}

		rec.waitFor(t, "disconnected")
		seq := rec.sequence()
		connectedAt, disconnectedAt := -1, -1
		for i, ev := range seq {
			if ev == "connected" && connectedAt == -1 {
				connectedAt = i
			}
			if ev == "disconnected" && disconnectedAt == -1 {
				disconnectedAt = i
			}
		}
		if connectedAt == -1 || disconnectedAt < connectedAt {
			t.Fatalf("Disconnected delivered before Connected: %v", seq)
		}
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	cli, _ := connectedClient(t)
	cli.Dispose()

	var fired atomic.Int32
	cli.OnDisconnected(func(mcpconn.DisconnectedInfo) {
		fired.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("late subscriber should not receive the already-fired Disconnected")
	}
}

func TestSubscriberIsolation(t *testing.T) {
	sess := newFakeSession()
	serveHandshake(sess, "2024-11-05")

	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: sess})

	var survived atomic.Int32
	cli.OnConnected(func(mcpconn.ConnectedInfo) {
		panic("subscriber bug")
	})
	cli.OnConnected(func(mcpconn.ConnectedInfo) {
		survived.Add(1)
	})

	if err := cli.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v, subscriber panic must not propagate", err)
	}
	if survived.Load() != 1 {
		t.Error("panicking subscriber blocked the remaining subscribers")
	}

	cli.Dispose()
}

func TestSubscriptionCancel(t *testing.T) {
	cli, _ := connectedClient(t)

	var fired atomic.Int32
	sub := cli.OnDisconnected(func(mcpconn.DisconnectedInfo) {
		fired.Add(1)
	})
	sub.Cancel()
	sub.Cancel() // safe to call twice

	cli.Dispose()
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled subscription still received an event")
	}
}

func TestAccessorsBeforeConnect(t *testing.T) {
	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: newFakeSession()})

	if cli.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if got := cli.State(); got != mcpconn.StateIdle {
		t.Errorf("State() = %v, want %v", got, mcpconn.StateIdle)
	}
	if _, err := cli.ServerInfo(); !errors.Is(err, mcpconn.ErrNotConnected) {
		t.Errorf("ServerInfo() error = %v, want ErrNotConnected", err)
	}
	if _, err := cli.ServerCapabilities(); !errors.Is(err, mcpconn.ErrNotConnected) {
		t.Errorf("ServerCapabilities() error = %v, want ErrNotConnected", err)
	}
	if _, err := cli.NegotiatedVersion(); !errors.Is(err, mcpconn.ErrNotConnected) {
		t.Errorf("NegotiatedVersion() error = %v, want ErrNotConnected", err)
	}
	if err := cli.Call(context.Background(), "ping", nil, nil); !errors.Is(err, mcpconn.ErrNotConnected) {
		t.Errorf("Call() error = %v, want ErrNotConnected", err)
	}
}

func TestCall(t *testing.T) {
	cli, sess := connectedClient(t)
	defer cli.Dispose()

	go func() {
		for {
			var msg mcpconn.JSONRPCMessage
			select {
			case <-sess.done:
				return
			case msg = <-sess.outgoing:
			}
			if msg.Method != "weather/current" {
				continue
			}
			result, _ := json.Marshal(map[string]any{"temperature": 21})
			sess.incoming <- mcpconn.JSONRPCMessage{
				JSONRPC: mcpconn.JSONRPCVersion,
				ID:      msg.ID,
				Result:  result,
			}
		}
	}()

	var result struct {
		Temperature int `json:"temperature"`
	}
	err := cli.Call(context.Background(), "weather/current", map[string]any{"city": "Oslo"}, &result)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result.Temperature != 21 {
		t.Errorf("result.Temperature = %d, want 21", result.Temperature)
	}
}

func TestPing(t *testing.T) {
	cli, _ := connectedClient(t)
	defer cli.Dispose()

	if err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestServerPingAnswered(t *testing.T) {
	cli, sess := connectedClient(t)
	defer cli.Dispose()

	sess.incoming <- mcpconn.JSONRPCMessage{
		JSONRPC: mcpconn.JSONRPCVersion,
		ID:      "srv-ping-1",
		Method:  "ping",
	}

	select {
	case msg := <-sess.outgoing:
		if string(msg.ID) != "srv-ping-1" || msg.Result == nil {
			t.Errorf("unexpected ping reply: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("server ping went unanswered")
	}
}

func TestKeepaliveTerminatesDeadSession(t *testing.T) {
	sess := newFakeSession()
	serveHandshake(sess, "2024-11-05")

	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"},
		&fakeTransport{sess: sess},
		mcpconn.WithPingInterval(20*time.Millisecond),
		mcpconn.WithWriteTimeout(20*time.Millisecond),
		mcpconn.WithPingTimeoutThreshold(1))

	rec := &lifecycleRecorder{}
	rec.subscribe(cli)

	if err := cli.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Pings now go unanswered, so each one times out until the threshold
	// trips and the session is terminated.
	sess.mutePings.Store(true)

	rec.waitFor(t, "disconnected")
	if rec.disconnected[0].Graceful() {
		t.Error("keepalive termination should not be graceful")
	}
}

func TestReconnectCreatesFreshSession(t *testing.T) {
	sess1 := newFakeSession()
	serveHandshake(sess1, "2024-11-05")

	transport := &switchableTransport{sess: sess1}
	cli := mcpconn.NewClient(mcpconn.Info{Name: "test-client", Version: "1.0"}, transport)

	var disconnects atomic.Int32
	cli.OnDisconnected(func(mcpconn.DisconnectedInfo) {
		disconnects.Add(1)
	})

	if err := cli.Connect(context.Background()); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	cli.Dispose()

	sess2 := newFakeSession()
	serveHandshake(sess2, "2024-11-05")
	transport.swap(sess2)

	if err := cli.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if !cli.IsConnected() {
		t.Error("IsConnected() = false after reconnect")
	}

	cli.Dispose()
	deadline := time.Now().Add(time.Second)
	for disconnects.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := disconnects.Load(); got != 2 {
		t.Errorf("got %d Disconnected notifications over two sessions, want 2", got)
	}
}

type switchableTransport struct {
	mu   sync.Mutex
	sess *fakeSession
}

func (t *switchableTransport) swap(sess *fakeSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sess = sess
}

func (t *switchableTransport) Connect(_ context.Context) (mcpconn.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return nil, fmt.Errorf("no session available")
	}
	return t.sess, nil
}
