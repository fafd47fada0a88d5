package mcpconn

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// StdIO implements ClientTransport over an io.Reader/io.Writer pair using
// newline-delimited JSON-RPC messages. It is typically used to talk to a
// server running as a child process, with the pair wired to the process's
// stdout/stdin.
//
// StdIO supports a single session per instance; a second Connect fails
// rather than sharing the pipes with the first session.
type StdIO struct {
	sess    *stdIOSession
	started atomic.Bool
}

type stdIOSession struct {
	id     string
	reader io.Reader
	writer io.Writer
	logger *slog.Logger

	alive   atomic.Bool
	readErr error

	writeMessages chan stdIOMessage
	done          chan struct{}
	readClosed    chan struct{}
	writeClosed   chan struct{}
	stopOnce      sync.Once
}

type stdIOMessage struct {
	msg  []byte
	errs chan error
}

// NewStdIO creates a new StdIO transport reading server messages from reader
// and writing client messages to writer.
func NewStdIO(reader io.Reader, writer io.Writer) *StdIO {
	return &StdIO{
		sess: &stdIOSession{
			id:            uuid.New().String(),
			reader:        reader,
			writer:        writer,
			logger:        slog.Default(),
			writeMessages: make(chan stdIOMessage),
			done:          make(chan struct{}),
			readClosed:    make(chan struct{}),
			writeClosed:   make(chan struct{}),
		},
	}
}

// Connect implements the ClientTransport interface. The underlying pipes are
// assumed to be live already, so the session is returned immediately.
func (s *StdIO) Connect(_ context.Context) (Session, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("stdio transport supports a single session")
	}
	s.sess.alive.Store(true)
	go s.sess.processWriteMessages()
	return s.sess, nil
}

func (s *stdIOSession) ID() string {
	return s.id
}

func (s *stdIOSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	// Append newline to maintain message framing protocol
	msgBs = append(msgBs, '\n')

	ioMsg := stdIOMessage{
		msg:  msgBs,
		errs: make(chan error, 1),
	}

	// Queue the message so writes stay serialized on the writer.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.New("session is closed")
	case s.writeMessages <- ioMsg:
	}

	select {
	case err := <-ioMsg.errs:
		if err != nil {
			s.logger.Error("get error result from write", slog.String("err", err.Error()))
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errors.New("session is closed")
	}
}

func (s *stdIOSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		defer func() {
			s.alive.Store(false)
			close(s.readClosed)
		}()

		// Use bufio.Reader instead of bufio.Scanner to avoid max token size errors.
		reader := bufio.NewReader(s.reader)
		for {
			type lineWithErr struct {
				line string
				err  error
			}

			lines := make(chan lineWithErr, 1)

			// Read on a goroutine so the done channel stays responsive even
			// with a blocked reader.
			go func() {
				line, err := reader.ReadString('\n')
				if err != nil {
					lines <- lineWithErr{err: err}
					return
				}
				lines <- lineWithErr{line: strings.TrimSuffix(line, "\n")}
			}()

			var lwe lineWithErr
			select {
			case <-s.done:
				return
			case lwe = <-lines:
			}

			if lwe.err != nil {
				// EOF is the peer closing its end, a clean termination of the
				// stream rather than a fault.
				if !errors.Is(lwe.err, io.EOF) && !errors.Is(lwe.err, io.ErrClosedPipe) {
					s.readErr = lwe.err
				}
				return
			}

			if lwe.line == "" {
				continue
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal([]byte(lwe.line), &msg); err != nil {
				s.logger.Error("failed to unmarshal message", "err", err)
				continue
			}

			if !yield(msg) {
				return
			}
		}
	}
}

func (s *stdIOSession) Alive() bool {
	return s.alive.Load()
}

func (s *stdIOSession) Err() error {
	return s.readErr
}

// Stop ends the session and waits for the read and write loops to settle.
// It expects the Messages iterator to be consumed; the iterator exits once
// the done channel closes.
func (s *stdIOSession) Stop() {
	s.stopOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
		<-s.readClosed
		<-s.writeClosed
	})
}

func (s *stdIOSession) processWriteMessages() {
	defer close(s.writeClosed)

	for {
		var msg stdIOMessage
		select {
		case <-s.done:
			return
		case msg = <-s.writeMessages:
		}

		_, err := s.writer.Write(msg.msg)

		msg.errs <- err
	}
}
