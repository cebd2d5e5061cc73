// Package linereader reads one line of interactive input into a
// fixed-capacity buffer, truncating and counting anything that does not fit.
package linereader

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Terminator ends every line returned by ReadLine.
const Terminator byte = '\n'

var (
	// ErrNoInput is returned when the input ends before any byte is read.
	ErrNoInput = errors.New("no input")
	// ErrRead wraps a failure of the underlying input.
	ErrRead = errors.New("input read failed")
	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("capacity must be positive")
)

// Line is one line of input held in a zero-padded buffer of fixed capacity.
type Line struct {
	buffer []byte
	length int

	// Overflow is the number of input bytes that did not fit and were
	// discarded, the overwritten last byte included. Zero means the line is
	// complete.
	Overflow int
}

// Bytes returns the line including its terminator.
func (l Line) Bytes() []byte {
	return l.buffer[:l.length]
}

// Buffer returns the whole buffer, zero padding included.
func (l Line) Buffer() []byte {
	return l.buffer
}

// Len returns the length of the line including its terminator.
func (l Line) Len() int {
	return l.length
}

// Truncated reports whether input was discarded.
func (l Line) Truncated() bool {
	return l.Overflow > 0
}

// ReadLine consumes r byte by byte until a newline, the end of input, or
// capacity bytes. A line that reaches capacity gets its last byte replaced
// by the terminator and the rest of the input line is discarded and counted
// in Overflow. A line ended by end of input is terminated as if a newline had
// been read.
//
// Parameters:
//   - r: Input source, e.g. a bufio.Reader over os.Stdin
//   - capacity: Maximum line length in bytes, terminator included
//
// Returns:
//   - The line, always ending in the terminator
//   - ErrNoInput if the input was already exhausted, ErrRead if it failed,
//     ErrInvalidCapacity if capacity < 1
func ReadLine(r io.ByteReader, capacity int) (Line, error) {
	if capacity < 1 {
		return Line{}, fmt.Errorf("%w: capacity %d", ErrInvalidCapacity, capacity)
	}

	line := Line{buffer: make([]byte, capacity)}
	for line.length < capacity {
		c, err := r.ReadByte()
		if err == io.EOF {
			if line.length == 0 {
				return line, fmt.Errorf("%w: %w", ErrNoInput, io.EOF)
			}

			line.buffer[line.length] = Terminator
			line.length++
			return line, nil
		}

		if err != nil {
			return line, fmt.Errorf("%w: %w", ErrRead, err)
		}

		line.buffer[line.length] = c
		line.length++
		if c == Terminator {
			return line, nil
		}
	}

	line.buffer[capacity-1] = Terminator
	line.Overflow = 1
	for {
		c, err := r.ReadByte()
		if err == io.EOF || (err == nil && c == Terminator) {
			return line, nil
		}

		if err != nil {
			return line, fmt.Errorf("%w: %w", ErrRead, err)
		}

		line.Overflow++
	}
}
