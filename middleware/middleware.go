// Package middleware provides composable wrappers around the outbound command
// path: every message sent to the remote peer flows through the chain before
// it reaches the pipe.
package middleware

import (
	"context"

	"objwire/wire"
)

// HandlerFunc sends one command message and returns its response message.
// Failures are carried in the response's Error field so wrappers can inspect
// and react to them uniformly.
type HandlerFunc func(ctx context.Context, req *wire.Message) *wire.Message

// Middleware wraps a handler with extra behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines multiple middlewares into one. Chain(A, B, C)(handler)
// produces A(B(C(handler))): A sees the request first and the response last.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
