// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package skwrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrTimeout is wrapped into the error returned by Exec when ctx expires
// before the module answers.
var ErrTimeout = errors.New("sk command timed out")

// Wrapper multiplexes synchronous command/ack exchanges with the SK module's
// asynchronous event stream over a single serial connection. At most one
// command is ever in flight; additional Exec calls serialize behind it.
type Wrapper struct {
	conn   io.ReadWriteCloser
	framer *Framer
	logger *zap.Logger

	execMu sync.Mutex

	mu          sync.Mutex
	subscribers []*subscription
	pending     *pendingCommand

	readerDone chan struct{}
	closeOnce  sync.Once
}

type pendingCommand struct {
	waitUntil []string
	lines     []string
	errCh     chan error
}

// New constructs a Wrapper over conn. Call Start to begin the reader
// goroutine before issuing any command.
func New(conn io.ReadWriteCloser, logger *zap.Logger) *Wrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wrapper{
		conn:       conn,
		framer:     NewFramer(conn),
		logger:     logger.Named("skwrapper"),
		readerDone: make(chan struct{}),
	}
}

// Mode reports the framer's current payload mode (exported for the session
// manager, which flips it once ROPT/WOPT negotiation completes).
func (w *Wrapper) Mode() PayloadMode { return w.framer.Mode() }

// SetMode flips the framer's payload mode.
func (w *Wrapper) SetMode(m PayloadMode) { w.framer.SetMode(m) }

// Start launches the long-lived reader goroutine that owns the framer and
// fans incoming lines out to the pending command (if any) and to every
// matching event subscriber. Start returns immediately; the goroutine exits
// once the underlying connection errors or is closed.
func (w *Wrapper) Start() {
	go w.readLoop()
}

// Done returns a channel closed once the reader goroutine has exited.
func (w *Wrapper) Done() <-chan struct{} { return w.readerDone }

func (w *Wrapper) readLoop() {
	defer close(w.readerDone)
	for {
		line, err := w.framer.ReadLine()
		if err != nil {
			w.logger.Debug("reader stopped", zap.Error(err))
			w.failPending(err)
			return
		}
		if line.Text == "" {
			continue
		}
		w.logger.Debug("<<<", zap.String("line", line.Text))

		w.mu.Lock()
		pending := w.pending
		w.mu.Unlock()

		if pending != nil && !strings.HasPrefix(line.Text, "ERXUDP") {
			w.feedPending(pending, line.Text)
		}
		w.publish(line)
	}
}

func (w *Wrapper) feedPending(pc *pendingCommand, text string) {
	pc.lines = append(pc.lines, text)

	if strings.HasPrefix(text, "FAIL") {
		code, kind := parseFailCode(text)
		select {
		case pc.errCh <- &CommandError{Command: text, Code: code, Kind: kind}:
		default:
		}
		return
	}

	for _, want := range pc.waitUntil {
		if strings.HasPrefix(text, want) {
			select {
			case pc.errCh <- nil:
			default:
			}
			return
		}
	}
}

func (w *Wrapper) failPending(err error) {
	w.mu.Lock()
	pc := w.pending
	w.mu.Unlock()
	if pc != nil {
		select {
		case pc.errCh <- err:
		default:
		}
	}
}

func parseFailCode(text string) (int, CommandErrorKind) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, ErrKindUnknown
	}
	code, err := strconv.Atoi(strings.TrimPrefix(fields[1], "ER"))
	if err != nil {
		return 0, ErrKindUnknown
	}
	return code, classifyFailCode(code)
}

// Exec issues command, waits for a line beginning with one of waitUntil
// (or a "FAIL ERxx" response), and returns every intermediate line seen
// along the way (excluding ERXUDP lines, which are always routed to event
// subscribers instead and can never satisfy a command's predicate). payload,
// when non-nil, is written immediately after command with no intervening
// CRLF, the SK module's convention for commands that carry a binary tail
// (SKSENDTO).
func (w *Wrapper) Exec(ctx context.Context, command string, waitUntil []string, payload []byte) ([]string, error) {
	w.execMu.Lock()
	defer w.execMu.Unlock()

	pc := &pendingCommand{waitUntil: waitUntil, errCh: make(chan error, 1)}
	w.mu.Lock()
	w.pending = pc
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
	}()

	if err := w.writeCommand(command, payload); err != nil {
		return nil, err
	}

	select {
	case err := <-pc.errCh:
		if err != nil {
			return pc.lines, err
		}
		return pc.lines, nil
	case <-ctx.Done():
		return pc.lines, fmt.Errorf("%w: %s", ErrTimeout, command)
	case <-w.readerDone:
		return pc.lines, fmt.Errorf("sk wrapper reader stopped while waiting for: %s", command)
	}
}

func (w *Wrapper) writeCommand(command string, payload []byte) error {
	var data []byte
	if payload != nil {
		data = append([]byte(command+" "), payload...)
	} else {
		data = []byte(command + "\r\n")
	}
	w.logger.Debug(">>>", zap.String("command", command), zap.Int("payloadLen", len(payload)))
	_, err := w.conn.Write(data)
	return err
}

// Close releases the serial connection and waits for the reader goroutine
// to exit. Close is idempotent.
func (w *Wrapper) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.conn.Close()
		<-w.readerDone
	})
	return err
}
