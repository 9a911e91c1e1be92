package middleware

import (
	"context"
	"errors"
	"time"

	"portbridge/message"
)

// TimeOutMiddleware answers ResultTimeout when the handler has not returned
// within timeout. The late handler keeps running on its goroutine and its
// result is dropped. Cancellation of the parent context is not a timeout:
// the handler's own result is awaited and returned.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd message.Command) message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan message.Response, 1)
			go func() {
				done <- next(ctx, cmd)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return message.Response{Result: message.ResultTimeout}
				}
				return <-done
			}
		}
	}
}
