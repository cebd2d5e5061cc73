package transfer

import (
	"fmt"
	"io"
)

// maxEmptyWrites bounds consecutive (0, nil) writes.
const maxEmptyWrites = 100

// Send writes the whole payload to w, looping over short writes.
//
// Parameters:
//   - w: The stream to write to, usually a net.Conn
//   - payload: Exactly the bytes to transmit
//
// Returns:
//   - The number of bytes written
//   - An error wrapping ErrSend if the transport failed before the payload
//     was fully written
func Send(w io.Writer, payload []byte) (int, error) {
	total := 0
	empty := 0

	for total < len(payload) {
		n, err := w.Write(payload[total:])
		if n < 0 || n > len(payload)-total {
			return total, fmt.Errorf("%w: invalid write count %d", ErrSend, n)
		}

		total += n
		if err != nil {
			return total, fmt.Errorf("%w: %w", ErrSend, err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyWrites {
				return total, fmt.Errorf("%w: %w", ErrSend, io.ErrShortWrite)
			}

			continue
		}

		empty = 0
	}

	return total, nil
}
