package mcpconn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

// SSEClient implements ClientTransport over Server-Sent Events: the server
// streams messages through an SSE response while the client posts its own
// messages to an endpoint URL announced by the server as the first event of
// the stream.
type SSEClient struct {
	connectURL string
	httpClient *http.Client
	logger     *slog.Logger

	maxPayloadSize int
}

// SSEClientOption represents the options for the SSEClient.
type SSEClientOption func(*SSEClient)

// WithSSEClientMaxPayloadSize sets the maximum size of the payload that can
// be received from the server. If the payload size exceeds this limit, the
// stream fails and the session terminates.
func WithSSEClientMaxPayloadSize(size int) SSEClientOption {
	return func(s *SSEClient) {
		s.maxPayloadSize = size
	}
}

// NewSSEClient creates an SSE transport that connects to the specified
// connectURL. The optional httpClient parameter allows custom HTTP client
// configuration - if nil, the default HTTP client is used.
func NewSSEClient(connectURL string, httpClient *http.Client, options ...SSEClientOption) *SSEClient {
	cli := httpClient
	if cli == nil {
		cli = http.DefaultClient
	}
	s := &SSEClient{
		connectURL: connectURL,
		httpClient: cli,
		logger:     slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Connect implements the ClientTransport interface. It opens the SSE stream
// and waits for the server to announce the message endpoint before returning
// the session. The context governs that setup only; the stream itself runs
// until the session is stopped or the connection fails.
func (s *SSEClient) Connect(ctx context.Context) (Session, error) {
	// The stream must outlive the connect call, so it gets its own context
	// cancelled by Stop rather than by the caller.
	streamCtx, streamCancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.connectURL, nil)
	if err != nil {
		streamCancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		streamCancel()
		return nil, fmt.Errorf("failed to connect to SSE server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		streamCancel()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	sess := &sseSession{
		id:         uuid.New().String(),
		httpClient: s.httpClient,
		logger:     s.logger,
		cancel:     streamCancel,
		messages:   make(chan JSONRPCMessage),
		done:       make(chan struct{}),
		readClosed: make(chan struct{}),
	}
	sess.alive.Store(true)

	ready := make(chan error, 1)
	go sess.listenSSEMessages(resp.Body, s.maxPayloadSize, ready)

	select {
	case err := <-ready:
		if err != nil {
			sess.Stop()
			return nil, err
		}
	case <-ctx.Done():
		sess.Stop()
		return nil, ctx.Err()
	}

	return sess, nil
}

type sseSession struct {
	id         string
	httpClient *http.Client
	logger     *slog.Logger
	cancel     context.CancelFunc

	// messageURL is written once by the stream goroutine before ready is
	// signalled, then only read.
	messageURL string

	alive   atomic.Bool
	readErr error

	messages   chan JSONRPCMessage
	done       chan struct{}
	readClosed chan struct{}
	stopOnce   sync.Once
}

func (s *sseSession) ID() string {
	return s.id
}

// Send transmits a JSON-encoded message to the server through an HTTP POST
// request. Returns an error if message encoding fails, the request cannot be
// created, or the server responds with a non-200 status code.
func (s *sseSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	r := bytes.NewReader(msgBs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messageURL, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func (s *sseSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		for msg := range s.messages {
			if !yield(msg) {
				return
			}
		}
	}
}

func (s *sseSession) Alive() bool {
	return s.alive.Load()
}

func (s *sseSession) Err() error {
	select {
	case <-s.readClosed:
		return s.readErr
	default:
		return nil
	}
}

func (s *sseSession) Stop() {
	s.stopOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
		s.cancel()
		<-s.readClosed
	})
}

func (s *sseSession) listenSSEMessages(body io.ReadCloser, maxPayloadSize int, ready chan<- error) {
	// The setup phase ends with exactly one signal on ready. If the stream
	// dies before the server announces its endpoint, the connect call is
	// still waiting on it, so the defer reports the failure rather than
	// leaving the caller blocked.
	announced := false
	signalReady := func(err error) {
		announced = true
		ready <- err
	}

	defer func() {
		if !announced {
			signalReady(errors.New("stream ended before endpoint event"))
		}
		body.Close()
		s.alive.Store(false)
		close(s.readClosed)
		close(s.messages)
	}()

	var config *sse.ReadConfig
	if maxPayloadSize > 0 {
		config = &sse.ReadConfig{
			MaxEventSize: maxPayloadSize,
		}
	}

	for ev, err := range sse.Read(body, config) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.readErr = err
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			// The endpoint URL must parse before any message flows; a bad
			// endpoint means posting back would go who knows where.
			u, err := url.Parse(ev.Data)
			if err != nil {
				signalReady(fmt.Errorf("parse endpoint URL: %w", err))
				return
			}
			if u.String() == "" {
				signalReady(errors.New("empty endpoint URL"))
				return
			}
			s.messageURL = u.String()
			signalReady(nil)
		case "message":
			if s.messageURL == "" {
				s.logger.Error("received message before endpoint URL")
				continue
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
				s.logger.Error("failed to unmarshal message", "err", err)
				continue
			}

			select {
			case s.messages <- msg:
			case <-s.done:
				return
			}
		default:
			s.logger.Error("unhandled event type", "type", ev.Type)
		}
	}
}
