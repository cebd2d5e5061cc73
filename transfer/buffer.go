// Package transfer moves newline-terminated messages over a byte stream. It
// receives a message into a fixed-capacity buffer, accumulating partial reads
// until the terminator arrives, and sends a payload in full, retrying short
// writes.
package transfer

import "bytes"

// Terminator marks the end of one message on the wire.
const Terminator byte = '\n'

// Buffer is a fixed-capacity message buffer. Bytes past the fill length are
// always zero.
type Buffer struct {
	data   []byte
	length int
}

// NewBuffer allocates a zeroed Buffer that can hold capacity bytes.
//
// Parameters:
//   - capacity: Maximum number of bytes the buffer holds, terminator included
//
// Returns:
//   - An empty Buffer
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Bytes returns the occupied part of the buffer. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.length]
}

// Raw returns the whole buffer, zero padding included.
func (b *Buffer) Raw() []byte {
	return b.data
}

// Len returns the number of occupied bytes.
func (b *Buffer) Len() int {
	return b.length
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Complete reports whether the last occupied byte is the terminator.
func (b *Buffer) Complete() bool {
	return b.length > 0 && b.data[b.length-1] == Terminator
}

// Text returns the message without its terminator.
func (b *Buffer) Text() string {
	return string(bytes.TrimSuffix(b.Bytes(), []byte{Terminator}))
}

// Reset zeroes the buffer so it can be reused for another message.
func (b *Buffer) Reset() {
	clear(b.data)
	b.length = 0
}

// commit accounts for n bytes written at offset start. If they contain a
// terminator the fill length stops right after it; the bytes that followed
// are returned and wiped from the buffer.
func (b *Buffer) commit(start, n int) ([]byte, bool) {
	end := start + n
	i := bytes.IndexByte(b.data[start:end], Terminator)
	if i < 0 {
		b.length = end
		return nil, false
	}

	cut := start + i + 1
	leftover := append([]byte(nil), b.data[cut:end]...)
	clear(b.data[cut:end])
	b.length = cut
	return leftover, true
}
