package middleware

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"objwire/wire"
)

// Retry re-sends a command when it fails with a transient pipe error, backing
// off exponentially between attempts. Remote-side errors are never retried:
// the peer already executed (and rejected) the command once.
func Retry(maxRetries int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *wire.Message) *wire.Message {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if resp.Error == "" {
					return resp
				}
				if !isTransient(resp.Error) {
					return resp
				}
				logger.Info("retrying command",
					zap.Int("attempt", i+1),
					zap.String("method", req.Method),
					zap.String("error", resp.Error))
				time.Sleep(baseDelay * time.Duration(1<<i)) // Exponential backoff
				resp = next(ctx, req)
			}
			return resp
		}
	}
}

func isTransient(errText string) bool {
	return strings.Contains(errText, "timed out") ||
		strings.Contains(errText, "timeout") ||
		strings.Contains(errText, "closed pipe")
}
