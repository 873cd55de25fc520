package client

import (
	"context"
	"io"

	"github.com/leofalp/sequencer/core/protocol"
)

// RunFunc executes a graph run request against the service. It is the base
// unit threaded through the run middleware chain.
type RunFunc func(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error)

// StreamFunc opens a chat stream and returns its raw body. It is the base unit
// threaded through the stream middleware chain.
type StreamFunc func(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error)

// Middleware wraps a RunFunc. Middlewares are applied outermost-first: the
// first one passed to WithMiddleware runs first on the way in.
type Middleware func(next RunFunc) RunFunc

// StreamMiddleware is the streaming counterpart of Middleware. It may wrap
// the returned body to observe how long the stream stays open.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs a run middleware with its optional streaming
// counterpart. Run is required; a nil Stream means chat streams bypass this
// entry.
type MiddlewareConfig struct {
	Run    Middleware
	Stream StreamMiddleware
}

// buildRunChain applies middlewares in reverse so that middlewares[0] is the
// outermost wrapper around base.
func buildRunChain(base RunFunc, middlewares []MiddlewareConfig) RunFunc {
	chain := base
	for index := len(middlewares) - 1; index >= 0; index-- {
		chain = middlewares[index].Run(chain)
	}
	return chain
}

// buildStreamChain does the same for streams, skipping entries without a
// Stream middleware.
func buildStreamChain(base StreamFunc, middlewares []MiddlewareConfig) StreamFunc {
	chain := base
	for index := len(middlewares) - 1; index >= 0; index-- {
		if middlewares[index].Stream != nil {
			chain = middlewares[index].Stream(chain)
		}
	}
	return chain
}

// ReadCloserFunc adapts a body so that onClose runs exactly once after the
// underlying Close. Stream middlewares use it to hook the end of a stream.
func ReadCloserFunc(body io.ReadCloser, onClose func(closeErr error)) io.ReadCloser {
	return &hookedBody{ReadCloser: body, onClose: onClose}
}

type hookedBody struct {
	io.ReadCloser
	onClose func(closeErr error)
	closed  bool
}

func (h *hookedBody) Close() error {
	err := h.ReadCloser.Close()
	if !h.closed {
		h.closed = true
		if h.onClose != nil {
			h.onClose(err)
		}
	}
	return err
}
