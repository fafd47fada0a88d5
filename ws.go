package mcpconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSClient implements ClientTransport over a WebSocket connection carrying
// one JSON-RPC message per text frame. Each Connect call dials a fresh
// connection, so the transport can be reused across sessions.
type WSClient struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger

	writeTimeout time.Duration
}

// WSClientOption represents the options for the WSClient.
type WSClientOption func(*WSClient)

// WithWSDialer sets a custom dialer, for example to configure TLS or proxy
// settings. The default is websocket.DefaultDialer.
func WithWSDialer(dialer *websocket.Dialer) WSClientOption {
	return func(w *WSClient) {
		w.dialer = dialer
	}
}

// WithWSHeader sets additional headers sent with the dial request, such as
// authorization tokens.
func WithWSHeader(header http.Header) WSClientOption {
	return func(w *WSClient) {
		w.header = header
	}
}

// WithWSWriteTimeout bounds individual frame writes. The default is 10s.
func WithWSWriteTimeout(timeout time.Duration) WSClientOption {
	return func(w *WSClient) {
		w.writeTimeout = timeout
	}
}

// NewWSClient creates a WebSocket transport that dials the given URL.
func NewWSClient(url string, options ...WSClientOption) *WSClient {
	w := &WSClient{
		url:          url,
		dialer:       websocket.DefaultDialer,
		logger:       slog.Default(),
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// Connect implements the ClientTransport interface by dialing the configured
// URL. The context governs the dial only.
func (w *WSClient) Connect(ctx context.Context) (Session, error) {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s: %w (status %d)", w.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", w.url, err)
	}

	sess := &wsSession{
		id:           uuid.New().String(),
		conn:         conn,
		logger:       w.logger,
		writeTimeout: w.writeTimeout,
		done:         make(chan struct{}),
	}
	sess.alive.Store(true)

	return sess, nil
}

type wsSession struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	writeTimeout time.Duration

	// writeMu serializes all frame writes; gorilla/websocket allows only one
	// concurrent writer.
	writeMu sync.Mutex

	alive   atomic.Bool
	readErr error

	done     chan struct{}
	stopOnce sync.Once
}

func (s *wsSession) ID() string {
	return s.id
}

func (s *wsSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	select {
	case <-s.done:
		return errors.New("session is closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, msgBs); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (s *wsSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		defer s.alive.Store(false)

		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				select {
				case <-s.done:
					// Stopped locally; the read error is just the closed
					// connection, not a fault.
				default:
					if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						s.readErr = err
					}
				}
				return
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.logger.Error("failed to unmarshal message", "err", err)
				continue
			}

			if !yield(msg) {
				return
			}
		}
	}
}

func (s *wsSession) Alive() bool {
	return s.alive.Load()
}

func (s *wsSession) Err() error {
	return s.readErr
}

func (s *wsSession) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.alive.Store(false)

		// Best-effort close handshake before dropping the connection.
		s.writeMu.Lock()
		deadline := time.Now().Add(s.writeTimeout)
		_ = s.conn.SetWriteDeadline(deadline)
		_ = s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		s.writeMu.Unlock()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug("failed to close connection", "err", err)
		}
	})
}
