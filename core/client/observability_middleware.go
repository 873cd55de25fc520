package client

import (
	"context"
	"io"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/observability"
)

// NewObservabilityMiddleware creates a MiddlewareConfig that opens a span per
// request, logs its outcome and counts requests by status.
//
// Runs are measured until the reply is decoded. Chat streams are measured
// until the body is closed, so the span covers the whole stream. The span and
// the observer are put in the context before calling next, which lets the HTTP
// helpers attach request events to the span.
func NewObservabilityMiddleware(observer observability.Provider) MiddlewareConfig {
	return MiddlewareConfig{
		Run:    buildObsRun(observer),
		Stream: buildObsStream(observer),
	}
}

func buildObsRun(observer observability.Provider) Middleware {
	return func(next RunFunc) RunFunc {
		return func(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error) {
			ctx, span := startClientSpan(ctx, observer, observability.SpanClientRun, request.Model,
				observability.Int(observability.AttrGraphNodeCount, len(request.Nodes)),
				observability.Int(observability.AttrGraphEdgeCount, len(request.Edges)),
			)
			observer.Debug(ctx, "run request",
				observability.String(observability.AttrLLMModel, request.Model),
				observability.Int(observability.AttrGraphNodeCount, len(request.Nodes)),
			)

			timer := utils.NewTimer()
			response, err := next(ctx, request)
			timer.Stop()

			if err != nil {
				finishClientSpan(ctx, observer, span, "run request failed", request.Model, timer, err)
				return nil, err
			}

			if response.Error != "" {
				span.SetAttributes(observability.String(observability.AttrStatusDescription, response.Error))
			} else {
				span.SetAttributes(observability.Int(observability.AttrRunOutputs, len(response.Outputs)))
			}
			finishClientSpan(ctx, observer, span, "run request completed", request.Model, timer, nil)
			return response, nil
		}
	}
}

func buildObsStream(observer observability.Provider) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error) {
			ctx, span := startClientSpan(ctx, observer, observability.SpanClientChatStream, request.Model,
				observability.Int(observability.AttrChatHistoryLength, len(request.History)),
			)
			observer.Debug(ctx, "chat stream request",
				observability.String(observability.AttrLLMModel, request.Model),
				observability.Int(observability.AttrChatHistoryLength, len(request.History)),
			)

			timer := utils.NewTimer()
			body, err := next(ctx, request)
			if err != nil {
				timer.Stop()
				finishClientSpan(ctx, observer, span, "chat stream failed", request.Model, timer, err)
				return nil, err
			}

			return ReadCloserFunc(body, func(error) {
				timer.Stop()
				finishClientSpan(ctx, observer, span, "chat stream closed", request.Model, timer, ctx.Err())
			}), nil
		}
	}
}

func startClientSpan(ctx context.Context, observer observability.Provider, name string, model string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	attrs = append(attrs, observability.String(observability.AttrLLMModel, model))
	ctx, span := observer.StartSpan(ctx, name, attrs...)
	ctx = observability.ContextWithSpan(ctx, span)
	ctx = observability.ContextWithObserver(ctx, observer)
	return ctx, span
}

func finishClientSpan(ctx context.Context, observer observability.Provider, span observability.Span, message string, model string, timer *utils.Timer, err error) {
	status := "success"
	if err != nil {
		status = "error"
		observer.Error(ctx, message,
			observability.Error(err),
			observability.Duration(observability.AttrDuration, timer.Duration()),
			observability.String(observability.AttrLLMModel, model),
		)
	} else {
		observer.Info(ctx, message,
			observability.Duration(observability.AttrDuration, timer.Duration()),
			observability.String(observability.AttrLLMModel, model),
		)
	}
	observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, status),
		observability.String(observability.AttrLLMModel, model),
	)
	observability.EndSpan(span, err)
}
