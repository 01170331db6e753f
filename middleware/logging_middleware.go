package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"objwire/wire"
)

// Logging records every outbound command with its target object, duration,
// and outcome.
func Logging(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *wire.Message) *wire.Message {
			start := time.Now()
			resp := next(ctx, req)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("guid", req.GUID),
				zap.Duration("duration", time.Since(start)),
			}
			if resp.Error != "" {
				logger.Warn("command failed", append(fields, zap.String("error", resp.Error))...)
			} else {
				logger.Debug("command completed", fields...)
			}
			return resp
		}
	}
}
