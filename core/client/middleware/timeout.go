package middleware

import (
	"context"
	"io"
	"time"

	"github.com/leofalp/sequencer/core/client"
	"github.com/leofalp/sequencer/core/protocol"
)

// NewTimeoutMiddleware creates a MiddlewareConfig that puts a deadline on run
// requests and chat streams.
//
// A run request's context is canceled as soon as next returns. For a chat
// stream the cancel function is held until the body is closed, so the timeout
// bounds the whole stream and not just the time to the first byte. A shorter
// deadline already on the caller's context still wins.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Run:    buildRunTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
	}
}

func buildRunTimeout(timeout time.Duration) client.Middleware {
	return func(next client.RunFunc) client.RunFunc {
		return func(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func buildStreamTimeout(timeout time.Duration) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			body, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			return client.ReadCloserFunc(body, func(error) { cancel() }), nil
		}
	}
}
