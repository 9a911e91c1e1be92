package middleware

import (
	"context"

	"go.uber.org/zap"

	"portbridge/message"
)

// RecoverMiddleware turns a handler panic into ResultHandlerPanic so the loop
// keeps its lock-step with the peer.
func RecoverMiddleware(log *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd message.Command) (resp message.Response) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorw("handler panicked", "command", cmd.String(), "panic", r)
					resp = message.Response{Result: message.ResultHandlerPanic}
				}
			}()
			return next(ctx, cmd)
		}
	}
}
