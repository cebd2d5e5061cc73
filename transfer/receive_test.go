package transfer

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader hands out one chunk per Read call and records how many
// bytes each call asked for.
type scriptedReader struct {
	chunks    []string
	err       error
	requested []int
}

func (s *scriptedReader) Read(p []byte) (int, error) {
	s.requested = append(s.requested, len(p))
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		return 0, io.EOF
	}

	n := copy(p, s.chunks[0])
	if n < len(s.chunks[0]) {
		s.chunks[0] = s.chunks[0][n:]
	} else {
		s.chunks = s.chunks[1:]
	}

	return n, nil
}

// eofReader returns its content and io.EOF from the same call.
type eofReader string

func (e eofReader) Read(p []byte) (int, error) {
	return copy(p, e), io.EOF
}

type stalledReader struct {
	calls int
}

func (s *stalledReader) Read(p []byte) (int, error) {
	s.calls++
	return 0, nil
}

func TestReceiver_Receive(t *testing.T) {
	t.Run("accumulates partial reads", func(t *testing.T) {
		r := &scriptedReader{chunks: []string{"he", "ll", "o\n"}}
		buf, err := NewReceiver(r).Receive(16)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello\n"), buf.Bytes())
		assert.Equal(t, "hello", buf.Text())
		assert.True(t, buf.Complete())
		assert.Equal(t, []int{16, 14, 12}, r.requested)
	})

	t.Run("chunk boundaries do not matter", func(t *testing.T) {
		for _, chunks := range [][]string{
			{"hello\n"},
			{"h", "e", "l", "l", "o", "\n"},
			{"hel", "lo\n"},
		} {
			buf, err := NewReceiver(&scriptedReader{chunks: chunks}).Receive(16)
			require.NoError(t, err)
			assert.Equal(t, "hello\n", string(buf.Bytes()))
		}
	})

	t.Run("unused capacity stays zero", func(t *testing.T) {
		buf, err := NewReceiver(&scriptedReader{chunks: []string{"hi\n"}}).Receive(8)
		require.NoError(t, err)
		assert.Equal(t, []byte{'h', 'i', '\n', 0, 0, 0, 0, 0}, buf.Raw())
		assert.Equal(t, 8, buf.Cap())
	})

	t.Run("stops when capacity is reached without terminator", func(t *testing.T) {
		r := &scriptedReader{chunks: []string{"abcd", "efgh"}}
		buf, err := NewReceiver(r).Receive(6)
		assert.ErrorIs(t, err, ErrBufferFull)
		assert.EqualError(t, err, "receive buffer full: no terminator within 6 bytes")
		require.NotNil(t, buf)
		assert.Equal(t, "abcdef", string(buf.Bytes()))
		assert.False(t, buf.Complete())
		assert.Equal(t, []int{6, 2}, r.requested)
	})

	t.Run("peer closing before any data is reported", func(t *testing.T) {
		buf, err := NewReceiver(&scriptedReader{}).Receive(8)
		assert.ErrorIs(t, err, ErrConnectionClosed)
		require.NotNil(t, buf)
		assert.Equal(t, 0, buf.Len())
	})

	t.Run("peer closing mid message keeps the partial data", func(t *testing.T) {
		buf, err := NewReceiver(&scriptedReader{chunks: []string{"par"}}).Receive(8)
		assert.ErrorIs(t, err, ErrConnectionClosed)
		assert.EqualError(t, err, "connection closed early: received 3 bytes without terminator")
		assert.Equal(t, "par", string(buf.Bytes()))
	})

	t.Run("transport failure is a receive error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewReceiver(&scriptedReader{chunks: []string{"x"}, err: boom}).Receive(8)
		assert.ErrorIs(t, err, ErrReceive)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrConnectionClosed)
	})

	t.Run("terminator delivered with EOF completes the message", func(t *testing.T) {
		buf, err := NewReceiver(eofReader("done\n")).Receive(8)
		require.NoError(t, err)
		assert.Equal(t, "done", buf.Text())
	})

	t.Run("bytes after the terminator belong to the next message", func(t *testing.T) {
		rc := NewReceiver(&scriptedReader{chunks: []string{"one\ntw", "o\n"}})

		first, err := rc.Receive(16)
		require.NoError(t, err)
		assert.Equal(t, "one\n", string(first.Bytes()))
		assert.Equal(t, byte(0), first.Raw()[4])
		assert.Equal(t, 2, rc.Buffered())

		second, err := rc.Receive(16)
		require.NoError(t, err)
		assert.Equal(t, "two\n", string(second.Bytes()))
		assert.Equal(t, 0, rc.Buffered())
	})

	t.Run("held bytes alone can complete a message", func(t *testing.T) {
		r := &scriptedReader{chunks: []string{"a\nb\n"}}
		rc := NewReceiver(r)

		_, err := rc.Receive(8)
		require.NoError(t, err)

		buf, err := rc.Receive(8)
		require.NoError(t, err)
		assert.Equal(t, "b\n", string(buf.Bytes()))
		assert.Len(t, r.requested, 1)
	})

	t.Run("held bytes larger than capacity fill the buffer", func(t *testing.T) {
		rc := NewReceiver(&scriptedReader{chunks: []string{"a\nbcdefg"}})

		_, err := rc.Receive(16)
		require.NoError(t, err)

		buf, err := rc.Receive(3)
		assert.ErrorIs(t, err, ErrBufferFull)
		assert.Equal(t, "bcd", string(buf.Bytes()))
	})

	t.Run("endless empty reads give up", func(t *testing.T) {
		r := &stalledReader{}
		_, err := NewReceiver(r).Receive(8)
		assert.ErrorIs(t, err, ErrReceive)
		assert.ErrorIs(t, err, io.ErrNoProgress)
		assert.Equal(t, maxEmptyReads, r.calls)
	})

	t.Run("non-positive capacity is rejected", func(t *testing.T) {
		buf, err := NewReceiver(&scriptedReader{}).Receive(0)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
		assert.EqualError(t, err, "capacity must be positive: capacity 0")
		assert.Nil(t, buf)
	})
}

func TestBuffer_Reset(t *testing.T) {
	buf, err := NewReceiver(&scriptedReader{chunks: []string{"abc\n"}}).Receive(4)
	require.NoError(t, err)

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, []byte{0, 0, 0, 0}, buf.Raw())
	assert.False(t, buf.Complete())
}
