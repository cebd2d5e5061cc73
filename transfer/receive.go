package transfer

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// maxEmptyReads bounds consecutive (0, nil) reads before giving up, as
// bufio does.
const maxEmptyReads = 100

// Receiver reads newline-terminated messages from a stream. Bytes that
// arrive after a terminator are held for the next Receive. A Receiver is not
// safe for concurrent use.
type Receiver struct {
	r       io.Reader
	pending []byte
}

// NewReceiver creates a Receiver reading from r.
//
// Parameters:
//   - r: The stream to read from, usually a net.Conn
//
// Returns:
//   - A new *Receiver with nothing buffered
func NewReceiver(r io.Reader) *Receiver {
	return &Receiver{r: r}
}

// Buffered returns the number of bytes already read from the stream that
// belong to the next message.
func (rc *Receiver) Buffered() int {
	return len(rc.pending)
}

// Receive blocks until one message is read into a fresh buffer of the given
// capacity. Each read asks for at most the space left in the buffer.
//
// Parameters:
//   - capacity: Buffer capacity in bytes, terminator included
//
// Returns:
//   - The buffer holding the message, also returned with ErrBufferFull and
//     ErrConnectionClosed so the caller can inspect the partial data
//   - ErrBufferFull if capacity ran out before the terminator
//   - ErrConnectionClosed if the peer closed before the terminator
//   - ErrReceive if the transport failed
func (rc *Receiver) Receive(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidCapacity, capacity)
	}

	buf := NewBuffer(capacity)
	complete := rc.drainPending(buf)
	empty := 0

	for !complete {
		if buf.length >= capacity {
			return buf, fmt.Errorf("%w: no terminator within %d bytes", ErrBufferFull, capacity)
		}

		start := buf.length
		n, err := rc.r.Read(buf.data[start:])
		if n > 0 {
			empty = 0
			var leftover []byte
			leftover, complete = buf.commit(start, n)
			if complete {
				rc.pending = leftover
			}
		}

		if complete {
			return buf, nil
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, fmt.Errorf("%w: received %d bytes without terminator", ErrConnectionClosed, buf.length)
			}

			return buf, fmt.Errorf("%w: %w", ErrReceive, err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return buf, fmt.Errorf("%w: %w", ErrReceive, io.ErrNoProgress)
			}
		}
	}

	return buf, nil
}

// drainPending moves held-over bytes into buf and reports whether they
// already complete a message.
func (rc *Receiver) drainPending(buf *Buffer) bool {
	if len(rc.pending) == 0 {
		return false
	}

	n := copy(buf.data, rc.pending)
	rest := rc.pending[n:]
	leftover, complete := buf.commit(0, n)
	if complete {
		rc.pending = append(leftover, rest...)
	} else {
		rc.pending = rest
	}

	return complete
}
