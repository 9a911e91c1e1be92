package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"portbridge/message"
)

// LoggingMiddleware records every dispatched command at debug level.
func LoggingMiddleware(log *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd message.Command) message.Response {
			start := time.Now()
			resp := next(ctx, cmd)
			log.Debugw("dispatched command",
				"opcode", cmd.Opcode,
				"operand", cmd.Operand,
				"result", resp.Result,
				"duration", time.Since(start),
			)
			return resp
		}
	}
}
