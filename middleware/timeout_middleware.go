package middleware

import (
	"context"
	"time"

	"objwire/wire"
)

// Timeout bounds how long a single command may wait for its response.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *wire.Message) *wire.Message {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *wire.Message, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return &wire.Message{
					GUID:   req.GUID,
					Method: req.Method,
					Error:  "command timed out",
				}
			}
		}
	}
}
