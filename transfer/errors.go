package transfer

import "github.com/pkg/errors"

var (
	// ErrBufferFull means capacity was reached before the terminator. The
	// partial message is still returned; the condition is not fatal.
	ErrBufferFull = errors.New("receive buffer full")
	// ErrConnectionClosed means the peer closed the stream before a complete
	// message arrived.
	ErrConnectionClosed = errors.New("connection closed early")
	// ErrReceive wraps a failed read from the transport.
	ErrReceive = errors.New("receive failed")
	// ErrSend wraps a failed write to the transport.
	ErrSend = errors.New("send failed")
	// ErrInvalidCapacity is returned for a non-positive buffer capacity.
	ErrInvalidCapacity = errors.New("capacity must be positive")
)
