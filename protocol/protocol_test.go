package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 2, 255, 256, 1000, MaxPayloadLen}
	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i % 251)
		}

		var buf bytes.Buffer
		c := NewConn(&buf, &buf, DefaultLimits())
		require.NoError(t, c.WriteFrame(payload))
		require.Equal(t, PrefixSize+size, buf.Len())

		out, err := c.ReadFrame()
		require.NoError(t, err)
		assert.Len(t, out, size)
		assert.True(t, bytes.Equal(out, payload), "payload mismatch for size %d", size)
	}
}

func TestLengthPrefixIsBigEndian(t *testing.T) {
	for _, l := range []int{0, 1, 0xFF, 0x100, 0x1234, 0xABCD, MaxPayloadLen} {
		b := EncodeLength(l)
		assert.Equal(t, byte((l>>8)&0xFF), b[0])
		assert.Equal(t, byte(l&0xFF), b[1])
		assert.Equal(t, uint16(l), DecodeLength(b))
	}
}

func TestWriteFrameWireBytes(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(nil, &buf, DefaultLimits())
	require.NoError(t, c.WriteFrame([]byte{1, 5}))
	assert.Equal(t, []byte{0, 2, 1, 5}, buf.Bytes())
}

func TestReadExactAcrossPartialReads(t *testing.T) {
	// OneByteReader forces a separate Read for every byte.
	src := iotest.OneByteReader(bytes.NewReader([]byte{0, 4, 'a', 'b', 'c', 'd'}))
	c := NewConn(src, nil, DefaultLimits())

	out, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), out)
}

func TestReadExactShortStream(t *testing.T) {
	c := NewConn(bytes.NewReader([]byte{1, 2, 3}), nil, DefaultLimits())
	buf := make([]byte, 5)
	n, err := c.ReadExact(buf)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadExactEmptyStream(t *testing.T) {
	c := NewConn(bytes.NewReader(nil), nil, DefaultLimits())
	n, err := c.ReadExact(make([]byte, 2))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameCleanEOF(t *testing.T) {
	c := NewConn(bytes.NewReader(nil), nil, DefaultLimits())
	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFramePartialPrefix(t *testing.T) {
	c := NewConn(bytes.NewReader([]byte{0}), nil, DefaultLimits())
	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, ErrPartialPrefix)
	assert.False(t, errors.Is(err, io.EOF))
}

func TestReadFrameShortPayload(t *testing.T) {
	// Declares 10 bytes, delivers 3, then closes.
	c := NewConn(bytes.NewReader([]byte{0, 10, 1, 2, 3}), nil, DefaultLimits())
	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestReadFrameTooLarge(t *testing.T) {
	src := bytes.NewReader([]byte{0, 101, 0xAA})
	c := NewConn(src, nil, Limits{MaxReadBytes: 100})
	_, err := c.ReadFrame()
	require.ErrorIs(t, err, ErrFrameTooLarge)
	// The payload must not have been consumed.
	assert.Equal(t, 1, src.Len())
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(nil, &buf, DefaultLimits())
	err := c.WriteFrame(make([]byte, MaxPayloadLen+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len())
}

func TestLimitsCapEachDirection(t *testing.T) {
	// A one-byte read cap must not stop two-byte writes.
	var buf bytes.Buffer
	c := NewConn(&buf, &buf, Limits{MaxReadBytes: 1, MaxWriteBytes: 2})
	require.NoError(t, c.WriteFrame([]byte{1, 5}))
	assert.Equal(t, []byte{0, 2, 1, 5}, buf.Bytes())

	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	err = c.WriteFrame([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestZeroLimitsMeanProtocolMax(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(&buf, &buf, Limits{})
	payload := make([]byte, MaxPayloadLen)
	require.NoError(t, c.WriteFrame(payload))
	out, err := c.ReadFrame()
	require.NoError(t, err)
	assert.Len(t, out, MaxPayloadLen)
}

// chunkWriter accepts at most max bytes per call.
type chunkWriter struct {
	buf   bytes.Buffer
	max   int
	calls int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.calls++
	if len(p) > w.max {
		p = p[:w.max]
	}
	return w.buf.Write(p)
}

func TestWriteExactContinuesShortWrites(t *testing.T) {
	w := &chunkWriter{max: 3}
	c := NewConn(nil, w, DefaultLimits())
	n, err := c.WriteExact([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "0123456789", w.buf.String())
	assert.Equal(t, 4, w.calls)
}

// stuckWriter reports no progress and no error.
type stuckWriter struct{ calls int }

func (w *stuckWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, nil
}

func TestWriteExactNoProgressIsTerminal(t *testing.T) {
	w := &stuckWriter{}
	c := NewConn(nil, w, DefaultLimits())
	_, err := c.WriteExact([]byte{1})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 1, w.calls)
}

func TestWriteFrameSurfacesWriterError(t *testing.T) {
	pr, pw := io.Pipe()
	pr.Close()
	c := NewConn(nil, pw, DefaultLimits())
	err := c.WriteFrame([]byte{1})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestSequentialFramesStayAligned(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(&buf, &buf, DefaultLimits())
	require.NoError(t, c.WriteFrame([]byte{1, 5}))
	require.NoError(t, c.WriteFrame(nil))
	require.NoError(t, c.WriteFrame([]byte{2, 7}))

	for _, want := range [][]byte{{1, 5}, {}, {2, 7}} {
		got, err := c.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}
