// Package server implements the portbridge command loop.
//
// Request processing pipeline:
//
//	ReadFrame → DecodeCommand → Middleware Chain → table lookup → handler → WriteFrame
//
// The loop is strictly lock-step: one request is read, answered and flushed
// before the next is read, so responses leave in the order requests arrived.
// It ends cleanly only when the input stream closes between frames.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"portbridge/codec"
	"portbridge/handlers"
	"portbridge/logging"
	"portbridge/message"
	"portbridge/middleware"
	"portbridge/protocol"
)

// DefaultMaxRequestBytes caps the declared length of a request frame. Requests
// are two bytes; anything past this is rejected as ErrFrameTooLarge.
const DefaultMaxRequestBytes = 100

var (
	ErrMalformedCommand = codec.ErrMalformedCommand
	ErrServing          = errors.New("server: already serving")
)

// State is the position of the loop in its request cycle.
type State int32

const (
	StateIdle            State = iota // Serve not called yet
	StateAwaitingRequest              // blocked in ReadFrame
	StateProcessing                   // dispatching and replying
	StateTerminated                   // Serve returned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRequest:
		return "awaiting_request"
	case StateProcessing:
		return "processing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Server owns the handler table and runs the read-dispatch-write loop.
type Server struct {
	table         table                   // opcode → handler, frozen once Serve starts
	middlewares   []middleware.Middleware // applied in the order added
	handler       middleware.HandlerFunc  // middleware(middleware(...(dispatch)))
	log           *zap.SugaredLogger
	limits        protocol.Limits
	unknownResult byte
	serving       atomic.Bool
	state         atomic.Int32
	served        atomic.Uint64
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithLimits sets the capacity check applied to incoming request frames.
func WithLimits(l protocol.Limits) Option {
	return func(s *Server) {
		s.limits = l
	}
}

// WithUnknownOpcodeResult changes the byte answered for opcodes missing from the table.
func WithUnknownOpcodeResult(b byte) Option {
	return func(s *Server) {
		s.unknownResult = b
	}
}

// NewServer creates a server with an empty handler table.
func NewServer(opts ...Option) *Server {
	s := &Server{
		table:         make(table),
		log:           logging.Nop(),
		limits:        protocol.Limits{MaxReadBytes: DefaultMaxRequestBytes},
		unknownResult: message.ResultUnknownOpcode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds fn to op. It fails for duplicate opcodes and once Serve has started.
func (svr *Server) Register(op message.Opcode, fn handlers.Func) error {
	if svr.serving.Load() {
		return ErrServing
	}
	return svr.table.register(op, fn)
}

// RegisterTable registers every entry of t.
func (svr *Server) RegisterTable(t map[message.Opcode]handlers.Func) error {
	for op, fn := range t {
		if err := svr.Register(op, fn); err != nil {
			return err
		}
	}
	return nil
}

// Use registers a middleware. Middlewares are applied in the order they are
// added. The chain is frozen once Serve starts; later calls return ErrServing.
func (svr *Server) Use(mw middleware.Middleware) error {
	if svr.serving.Load() {
		return ErrServing
	}
	svr.middlewares = append(svr.middlewares, mw)
	return nil
}

// State reports where the loop currently is.
func (svr *Server) State() State {
	return State(svr.state.Load())
}

// Served reports how many responses have been written.
func (svr *Server) Served() uint64 {
	return svr.served.Load()
}

// Serve runs the command loop over r and w until r reaches end-of-stream.
//
// A clean end-of-stream between frames returns nil. Any other read failure,
// a request payload that is not two bytes, or a failed write is terminal and
// returned; the loop never tries to resynchronise with the peer.
//
// ctx is handed to the middleware chain and checked between frames. A read
// that is already blocked is not interrupted by cancellation.
func (svr *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	if !svr.serving.CompareAndSwap(false, true) {
		return ErrServing
	}
	defer svr.setState(StateTerminated)

	// Build the middleware chain once, not per request.
	svr.handler = middleware.Chain(svr.middlewares...)(svr.dispatch)
	conn := protocol.NewConn(r, w, svr.limits)

	svr.log.Infow("command loop started", "opcodes", len(svr.table), "max_request_bytes", svr.limits.MaxReadBytes)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		svr.setState(StateAwaitingRequest)
		payload, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				svr.log.Infow("input closed, stopping", "served", svr.Served())
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		svr.setState(StateProcessing)
		cmd, err := codec.DecodeCommand(payload)
		if err != nil {
			return err
		}

		resp := svr.handler(ctx, cmd)
		if err := conn.WriteFrame(codec.EncodeResponse(resp)); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		svr.served.Add(1)
	}
}

// dispatch is the innermost handler: table lookup and call.
func (svr *Server) dispatch(ctx context.Context, cmd message.Command) message.Response {
	fn, ok := svr.table.lookup(cmd.Opcode)
	if !ok {
		svr.log.Warnw("unknown opcode", "opcode", cmd.Opcode, "operand", cmd.Operand)
		return message.Response{Result: svr.unknownResult}
	}
	return message.Response{Result: fn(cmd.Operand)}
}

func (svr *Server) setState(s State) {
	svr.state.Store(int32(s))
}
