package middleware

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/leofalp/sequencer/core/client"
	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/internal/utils"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs only the model and the duration.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds graph sizes, history length and output counts.
	LogLevelStandard

	// LogLevelVerbose adds the chat message and the run error text, truncated
	// to 500 characters.
	//
	// WARNING: verbose logs contain raw user prompts. Use it for local
	// debugging only.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware creates a MiddlewareConfig that logs every run request
// and chat stream through logger. Stream completion is logged when the body is
// closed. logger must not be nil; pass slog.Default() when in doubt.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Run:    buildRunLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildRunLogging(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.RunFunc) client.RunFunc {
		return func(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error) {
			logger.InfoContext(ctx, "run request", runRequestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "run request failed",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "run request completed", runResponseAttrs(response, elapsed, level)...)
			return response, nil
		}
	}
}

func buildStreamLogging(logger *slog.Logger, level LogLevel) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error) {
			logger.InfoContext(ctx, "chat stream", streamRequestAttrs(request, level)...)

			start := time.Now()
			body, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "chat stream failed",
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			return client.ReadCloserFunc(body, func(error) {
				attrs := []any{
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					logger.WarnContext(ctx, "chat stream abandoned", append(attrs, slog.String("error", ctxErr.Error()))...)
					return
				}
				logger.InfoContext(ctx, "chat stream completed", attrs...)
			}), nil
		}
	}
}

func runRequestAttrs(request protocol.RunRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}
	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Int("nodes", len(request.Nodes)),
			slog.Int("edges", len(request.Edges)),
		)
	}
	return attrs
}

func runResponseAttrs(response *protocol.RunResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", response.ModelUsed),
		slog.Duration("duration", elapsed),
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("outputs", len(response.Outputs)))
	}
	if level >= LogLevelVerbose && response.Error != "" {
		attrs = append(attrs, slog.String("service_error", utils.TruncateString(response.Error, truncateLen)))
	}
	return attrs
}

func streamRequestAttrs(request protocol.ChatStreamRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("history_length", len(request.History)))
	}
	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("message", utils.TruncateString(request.Message, truncateLen)))
	}
	return attrs
}
