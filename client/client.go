// Package client is the host side of the bridge: it sends commands to a
// portbridge worker and reads back its one-byte answers.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"portbridge/codec"
	"portbridge/handlers"
	"portbridge/logging"
	"portbridge/message"
	"portbridge/protocol"
)

var (
	ErrMalformedResponse = codec.ErrMalformedResponse
	ErrClosed            = errors.New("client: closed")
)

// Client talks to a single worker. The protocol is lock-step, so calls are
// serialized: the next request is written only after the previous answer was read.
type Client struct {
	mu     sync.Mutex
	conn   *protocol.Conn
	w      io.Writer
	log    *zap.SugaredLogger
	closed bool
}

type Option func(*Client)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient reads responses from r and writes requests to w.
func NewClient(r io.Reader, w io.Writer, opts ...Option) *Client {
	c := &Client{
		conn: protocol.NewConn(r, w, protocol.Limits{
			MaxReadBytes:  message.ResponseSize,
			MaxWriteBytes: message.CommandSize,
		}),
		w:    w,
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends one command and waits for its result.
//
// ctx is checked before the request is written; a call already waiting on the
// worker is not interrupted. Any error leaves the stream in an unknown state
// and the client should be closed.
func (c *Client) Call(ctx context.Context, op message.Opcode, operand byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := message.Command{Opcode: op, Operand: operand}
	if err := c.conn.WriteFrame(codec.EncodeCommand(cmd)); err != nil {
		return 0, fmt.Errorf("sending %s: %w", cmd, err)
	}

	payload, err := c.conn.ReadFrame()
	if err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			err = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return 0, fmt.Errorf("reading answer to %s: %w", cmd, err)
	}
	resp, err := codec.DecodeResponse(payload)
	if err != nil {
		return 0, err
	}

	c.log.Debugw("call complete", "opcode", op, "operand", operand, "result", resp.Result)
	return resp.Result, nil
}

func (c *Client) Foo(ctx context.Context, x byte) (byte, error) {
	return c.Call(ctx, handlers.OpFoo, x)
}

func (c *Client) Bar(ctx context.Context, x byte) (byte, error) {
	return c.Call(ctx, handlers.OpBar, x)
}

// Close closes the request stream if it can be closed. For a worker this is
// the end-of-stream signal that stops its loop.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
