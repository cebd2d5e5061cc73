// Package session runs one client exchange over an established connection:
// receive the welcome message, send one line of user input, receive the
// response. Errors are returned, never turned into process exits, so the
// caller decides the exit status.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cyberinferno/lineclient/linereader"
	"github.com/cyberinferno/lineclient/logger"
	"github.com/cyberinferno/lineclient/perfmonitor"
	"github.com/cyberinferno/lineclient/transfer"
)

const (
	prompt         = "Enter message: "
	responseHeader = "Server response:"
)

// Session is a single welcome/message/response exchange. It owns the
// connection and closes it when Run returns.
type Session struct {
	ID string

	conn     io.ReadWriteCloser
	receiver *transfer.Receiver
	input    io.ByteReader
	output   io.Writer
	capacity int
	logger   logger.Logger
	timer    *perfmonitor.PerformanceMonitor
}

// New prepares a session. Every message buffer, inbound and outbound, has
// the given capacity.
//
// Parameters:
//   - conn: The established connection; Run closes it
//   - input: Source of the user's line, e.g. bufio.NewReader(os.Stdin)
//   - output: Where messages and prompts are displayed
//   - capacity: Size in bytes of each message buffer
//   - log: Logger; the session adds its session_id field
//
// Returns:
//   - A *Session ready to Run
func New(conn io.ReadWriteCloser, input io.ByteReader, output io.Writer, capacity int, log logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:       id,
		conn:     conn,
		receiver: transfer.NewReceiver(conn),
		input:    input,
		output:   output,
		capacity: capacity,
		logger:   log.With(logger.Field{Key: "session_id", Value: id}),
		timer:    perfmonitor.NewPerformanceMonitor(),
	}
}

// Run performs the exchange and closes the connection on every path. A
// message cut short by a full buffer is displayed as received; every other
// failure ends the exchange.
//
// Parameters:
//   - ctx: Abandons the wait for user input when done. Reads from the
//     connection are unblocked by closing it instead.
//
// Returns:
//   - nil on success, otherwise an error wrapping the transfer, linereader
//     or close failure, or ctx.Err() if ctx ended while waiting for input
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		if closeErr := s.conn.Close(); closeErr != nil {
			s.logger.Warn("close failed", logger.Field{Key: "error", Value: closeErr})
			if err == nil {
				err = errors.Wrap(closeErr, "close connection")
			}
		}

		s.logger.Debug("connection closed")
	}()

	welcome, err := s.receive("welcome")
	if err != nil {
		return err
	}

	s.display(welcome)
	s.print(prompt)

	line, err := s.readLine(ctx)
	if err != nil {
		return errors.Wrap(err, "read message")
	}

	if line.Truncated() {
		s.logger.Warn("message truncated to buffer capacity",
			logger.Field{Key: "capacity", Value: s.capacity},
			logger.Field{Key: "discarded", Value: line.Overflow})
	}

	s.timer.Start()
	n, err := transfer.Send(s.conn, line.Bytes())
	if err != nil {
		return errors.Wrap(err, "send message")
	}

	s.logger.Debug("message sent", logger.Field{Key: "bytes", Value: n})
	s.print(responseHeader + "\n")

	response, err := s.receive("response")
	if err != nil {
		return err
	}

	s.timer.Stop()
	s.logger.Info("response received", logger.Field{Key: "round_trip_ms", Value: s.timer.ElapsedMilliseconds()})
	s.display(response)
	return nil
}

// receive reads one message. A full buffer is logged and tolerated.
func (s *Session) receive(what string) (*transfer.Buffer, error) {
	buf, err := s.receiver.Receive(s.capacity)
	if errors.Is(err, transfer.ErrBufferFull) {
		s.logger.Warn("receive buffer full, message truncated",
			logger.Field{Key: "message", Value: what},
			logger.Field{Key: "capacity", Value: s.capacity})
		return buf, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "receive %s", what)
	}

	s.logger.Debug("message received",
		logger.Field{Key: "message", Value: what},
		logger.Field{Key: "bytes", Value: buf.Len()})
	return buf, nil
}

type lineResult struct {
	line linereader.Line
	err  error
}

// readLine reads the user's line, giving up when ctx is done. The reading
// goroutine stays blocked on input until it returns; its result is dropped.
func (s *Session) readLine(ctx context.Context) (linereader.Line, error) {
	if err := ctx.Err(); err != nil {
		return linereader.Line{}, err
	}

	done := make(chan lineResult, 1)
	go func() {
		line, err := linereader.ReadLine(s.input, s.capacity)
		done <- lineResult{line: line, err: err}
	}()

	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		return linereader.Line{}, ctx.Err()
	}
}

func (s *Session) display(buf *transfer.Buffer) {
	s.print(buf.Text() + "\n")
}

func (s *Session) print(text string) {
	if _, err := fmt.Fprint(s.output, text); err != nil {
		s.logger.Warn("output write failed", logger.Field{Key: "error", Value: err})
	}
}
