package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"portbridge/message"
)

// RateLimitMiddleware applies a token bucket of r commands per second with the
// given burst. Rejected commands answer ResultRateLimited without reaching the handler.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd message.Command) message.Response {
			if !limiter.Allow() {
				return message.Response{Result: message.ResultRateLimited}
			}
			return next(ctx, cmd)
		}
	}
}
