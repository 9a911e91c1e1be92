// Package protocol implements the length-prefixed frame transport used between
// a host process and a portbridge worker.
//
// Every message on the wire is a 2-byte big-endian length followed by exactly
// that many payload bytes. The receiver reads the prefix first, then reads
// exactly the declared number of bytes, so partial reads on a pipe never split
// or merge messages.
//
// Frame format:
//
//	0    1    2
//	┌────┬────┬──────────────────┐
//	│ hi │ lo │   payload ...    │
//	│ u8 │ u8 │  length bytes    │
//	└────┴────┴──────────────────┘
package protocol

import (
	"errors"
	"fmt"
	"io"
)

const (
	PrefixSize    = 2      // Length prefix: high byte, low byte
	MaxPayloadLen = 0xFFFF // Largest length a 16-bit prefix can carry
)

// Limits bounds the payload size a Conn accepts on read and produces on write.
// A zero or out-of-range value means MaxPayloadLen.
type Limits struct {
	MaxReadBytes  int
	MaxWriteBytes int
}

// DefaultLimits allows every payload the 16-bit prefix can describe.
func DefaultLimits() Limits {
	return Limits{MaxReadBytes: MaxPayloadLen, MaxWriteBytes: MaxPayloadLen}
}

func capOf(n int) int {
	if n <= 0 || n > MaxPayloadLen {
		return MaxPayloadLen
	}
	return n
}

func (l Limits) readCap() int  { return capOf(l.MaxReadBytes) }
func (l Limits) writeCap() int { return capOf(l.MaxWriteBytes) }

// Conn frames messages over an injected reader/writer pair.
// The reader is owned by the read path and the writer by the write path;
// Conn does no locking of its own.
type Conn struct {
	r      io.Reader
	w      io.Writer
	limits Limits
}

// NewConn wraps r and w. Either may be nil if only one direction is used.
func NewConn(r io.Reader, w io.Writer, limits Limits) *Conn {
	return &Conn{r: r, w: w, limits: limits}
}

// EncodeLength returns the big-endian prefix for n. Only the low 16 bits of n are kept.
func EncodeLength(n int) [PrefixSize]byte {
	return [PrefixSize]byte{byte((n >> 8) & 0xff), byte(n & 0xff)}
}

// DecodeLength is the inverse of EncodeLength.
func DecodeLength(b [PrefixSize]byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// ReadExact fills buf from the reader, blocking until it is full or the stream ends.
//
// It returns len(buf) on success. If the stream ends before any byte arrives
// the error is io.EOF; if it ends part way the error is io.ErrUnexpectedEOF and
// n reports how many bytes were read.
func (c *Conn) ReadExact(buf []byte) (int, error) {
	return io.ReadFull(c.r, buf)
}

// WriteExact writes all of buf, continuing from the unwritten offset after a
// short write. A write that makes no progress is terminal and is not retried.
func (c *Conn) WriteExact(buf []byte) (int, error) {
	wrote := 0
	for wrote < len(buf) {
		n, err := c.w.Write(buf[wrote:])
		if n > 0 {
			wrote += n
		}
		if err != nil {
			return wrote, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		if n <= 0 {
			return wrote, fmt.Errorf("%w: %w", ErrWriteFailed, io.ErrShortWrite)
		}
	}
	return wrote, nil
}

// ReadFrame reads one length-prefixed payload.
//
// io.EOF is returned only when the stream closes cleanly between frames.
// A stream that closes inside the prefix yields ErrPartialPrefix, one that
// closes inside the payload yields ErrShortPayload, and a declared length over
// the configured limit yields ErrFrameTooLarge before any payload is consumed.
func (c *Conn) ReadFrame() ([]byte, error) {
	var prefix [PrefixSize]byte
	if _, err := c.ReadExact(prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrPartialPrefix
		}
		return nil, err
	}

	length := int(DecodeLength(prefix))
	if length > c.limits.readCap() {
		return nil, fmt.Errorf("%w: declared %d, limit %d", ErrFrameTooLarge, length, c.limits.readCap())
	}

	payload := make([]byte, length)
	if length == 0 {
		return payload, nil
	}
	n, err := c.ReadExact(payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: declared %d, got %d", ErrShortPayload, length, n)
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes the length prefix followed by payload.
// Payloads over the configured limit are rejected before anything is written.
func (c *Conn) WriteFrame(payload []byte) error {
	if len(payload) > c.limits.writeCap() {
		return fmt.Errorf("%w: payload %d, limit %d", ErrFrameTooLarge, len(payload), c.limits.writeCap())
	}

	prefix := EncodeLength(len(payload))
	if _, err := c.WriteExact(prefix[0:1]); err != nil {
		return err
	}
	if _, err := c.WriteExact(prefix[1:2]); err != nil {
		return err
	}
	if _, err := c.WriteExact(payload); err != nil {
		return err
	}
	return nil
}
