package tcpserver

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/cyberinferno/lineclient/logger"
	"github.com/cyberinferno/lineclient/transfer"
)

// ReplyFunc builds the reply to a received message. The message includes
// its terminator unless it was cut short by the buffer capacity.
type ReplyFunc func(message []byte) []byte

// AckReply answers every message with "ack\n".
func AckReply(message []byte) []byte {
	return []byte("ack\n")
}

// EchoReply sends the message back, terminated.
func EchoReply(message []byte) []byte {
	reply := append([]byte(nil), message...)
	if len(reply) == 0 || reply[len(reply)-1] != transfer.Terminator {
		reply = append(reply, transfer.Terminator)
	}

	return reply
}

// LineSessionConfig configures the line protocol sessions of a server.
type LineSessionConfig struct {
	// Welcome is sent first on every connection.
	Welcome *Banner
	// Reply answers the client's message.
	Reply ReplyFunc
	// Capacity bounds the received message, terminator included.
	Capacity int
	// Timeout bounds the whole session; 0 means no limit.
	Timeout time.Duration
}

// LineSession serves one client: welcome, one message, one reply.
type LineSession struct {
	id     uint32
	conn   net.Conn
	config LineSessionConfig
	logger logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewLineSession creates the session for conn.
func NewLineSession(id uint32, conn net.Conn, config LineSessionConfig, log logger.Logger) *LineSession {
	return &LineSession{
		id:     id,
		conn:   conn,
		config: config,
		logger: log.With(
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()},
		),
	}
}

// NewLineServer returns a TCPServer whose sessions speak the line protocol.
func NewLineServer(name, addr string, log logger.Logger, config LineSessionConfig) *TCPServer {
	var s *TCPServer
	s = NewTCPServer(name, addr, log, func(id uint32, conn net.Conn) TCPServerSession {
		return NewLineSession(id, conn, config, s.Logger)
	})

	return s
}

// ID implements TCPServerSession.
func (s *LineSession) ID() uint32 {
	return s.id
}

// Handle implements TCPServerSession.
func (s *LineSession) Handle() {
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		_ = s.conn.SetDeadline(time.Now().Add(s.config.Timeout))
	}

	welcome, err := s.config.Welcome.Get(ctx)
	if err != nil {
		s.logger.Error("banner unavailable", logger.Field{Key: "error", Value: err})
		return
	}

	if err := s.Send([]byte(welcome + "\n")); err != nil {
		s.logger.Warn("welcome not sent", logger.Field{Key: "error", Value: err})
		return
	}

	receiver := transfer.NewReceiver(s.conn)
	message, err := receiver.Receive(s.config.Capacity)
	switch {
	case errors.Is(err, transfer.ErrBufferFull):
		s.logger.Warn("message truncated", logger.Field{Key: "capacity", Value: s.config.Capacity})
	case err != nil:
		s.logger.Warn("message not received", logger.Field{Key: "error", Value: err})
		return
	}

	s.logger.Info("message received", logger.Field{Key: "message", Value: message.Text()})
	if err := s.Send(s.config.Reply(message.Bytes())); err != nil {
		s.logger.Warn("reply not sent", logger.Field{Key: "error", Value: err})
		return
	}

	// the exchange is over once the client hangs up
	if _, err := s.conn.Read(make([]byte, 1)); errors.Is(err, io.EOF) {
		s.logger.Debug("client closed connection")
	}
}

// Send implements TCPServerSession.
func (s *LineSession) Send(data []byte) error {
	_, err := transfer.Send(s.conn, data)
	return err
}

// Close implements TCPServerSession.
func (s *LineSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}
