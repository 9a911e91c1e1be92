// Package middleware wraps command dispatch with cross-cutting behavior.
//
// Middlewares compose as an onion: Chain(A, B)(h) runs A.before, B.before,
// h, B.after, A.after.
package middleware

import (
	"context"

	"portbridge/message"
)

// HandlerFunc answers one command. It always produces a response; failures are
// reported through the reserved result values in package message.
type HandlerFunc func(ctx context.Context, cmd message.Command) message.Response

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares; the first argument becomes the outermost layer.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
