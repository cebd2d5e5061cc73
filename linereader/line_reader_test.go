package linereader

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadLine_FitsInCapacity(t *testing.T) {
	t.Run("returns input with terminator and no overflow", func(t *testing.T) {
		for capacity := 6; capacity <= 12; capacity++ {
			line, err := ReadLine(reader("hello\n"), capacity)
			require.NoError(t, err)
			assert.Equal(t, "hello\n", string(line.Bytes()))
			assert.Zero(t, line.Overflow)
			assert.False(t, line.Truncated())
		}
	})

	t.Run("empty line is valid", func(t *testing.T) {
		line, err := ReadLine(reader("\n"), 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("\n"), line.Bytes())
		assert.Zero(t, line.Overflow)
	})

	t.Run("unused capacity is zero", func(t *testing.T) {
		line, err := ReadLine(reader("ab\n"), 6)
		require.NoError(t, err)
		assert.Equal(t, []byte{'a', 'b', '\n', 0, 0, 0}, line.Buffer())
		assert.Equal(t, 3, line.Len())
	})

	t.Run("stops at the first newline", func(t *testing.T) {
		r := reader("one\ntwo\n")
		line, err := ReadLine(r, 16)
		require.NoError(t, err)
		assert.Equal(t, "one\n", string(line.Bytes()))

		line, err = ReadLine(r, 16)
		require.NoError(t, err)
		assert.Equal(t, "two\n", string(line.Bytes()))
	})
}

func TestReadLine_Overflow(t *testing.T) {
	t.Run("truncates to capacity and counts discarded bytes", func(t *testing.T) {
		input := "abcdefghij"
		for capacity := 1; capacity <= len(input); capacity++ {
			line, err := ReadLine(reader(input+"\n"), capacity)
			require.NoError(t, err)
			assert.Equal(t, capacity, line.Len())
			assert.Equal(t, input[:capacity-1]+"\n", string(line.Bytes()))
			assert.Equal(t, len(input)-(capacity-1), line.Overflow, "capacity %d", capacity)
			assert.True(t, line.Truncated())
		}
	})

	t.Run("discards only up to the end of the line", func(t *testing.T) {
		r := reader("abcdef\nnext\n")
		line, err := ReadLine(r, 4)
		require.NoError(t, err)
		assert.Equal(t, "abc\n", string(line.Bytes()))
		assert.Equal(t, 3, line.Overflow)

		line, err = ReadLine(r, 8)
		require.NoError(t, err)
		assert.Equal(t, "next\n", string(line.Bytes()))
	})

	t.Run("end of input while discarding", func(t *testing.T) {
		line, err := ReadLine(reader("abcdef"), 4)
		require.NoError(t, err)
		assert.Equal(t, "abc\n", string(line.Bytes()))
		assert.Equal(t, 3, line.Overflow)
	})
}

func TestReadLine_EndOfInput(t *testing.T) {
	t.Run("partial line is terminated", func(t *testing.T) {
		line, err := ReadLine(reader("hi"), 8)
		require.NoError(t, err)
		assert.Equal(t, "hi\n", string(line.Bytes()))
		assert.Zero(t, line.Overflow)
	})

	t.Run("no input at all", func(t *testing.T) {
		_, err := ReadLine(reader(""), 8)
		assert.ErrorIs(t, err, ErrNoInput)
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestReadLine_Errors(t *testing.T) {
	t.Run("non-positive capacity", func(t *testing.T) {
		_, err := ReadLine(reader("x\n"), 0)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("read failure", func(t *testing.T) {
		boom := errors.New("boom")
		r := bufio.NewReader(iotest.ErrReader(boom))
		_, err := ReadLine(r, 8)
		assert.ErrorIs(t, err, ErrRead)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("read failure while discarding", func(t *testing.T) {
		boom := errors.New("boom")
		r := bufio.NewReader(io.MultiReader(strings.NewReader("abcdef"), iotest.ErrReader(boom)))
		line, err := ReadLine(r, 4)
		assert.ErrorIs(t, err, ErrRead)
		assert.Equal(t, "abc\n", string(line.Bytes()))
	})
}
