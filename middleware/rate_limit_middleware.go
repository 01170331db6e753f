package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"objwire/wire"
)

// RateLimit rejects commands that exceed a token-bucket budget. Useful when
// the remote peer is a shared process that must not be flooded.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *wire.Message) *wire.Message {
			if !limiter.Allow() {
				return &wire.Message{
					GUID:   req.GUID,
					Method: req.Method,
					Error:  "rate limit exceeded",
				}
			}
			return next(ctx, req)
		}
	}
}
