package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/providers/ai"
	"github.com/leofalp/sequencer/providers/observability"
)

// frameWriter writes SSE frames and flushes after each one.
type frameWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	frames  int
}

func (f *frameWriter) write(frame protocol.Frame) error {
	if err := protocol.WriteFrame(f.writer, frame); err != nil {
		return err
	}
	f.frames++
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return nil
}

// handleChatStream streams a chat reply as SSE frames, falling back to less
// capable models when one is rate limited.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request protocol.ChatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Model == "" {
		request.Model = protocol.DefaultChatModel
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanChatStreamServe,
		observability.String(observability.AttrLLMModel, request.Model),
		observability.Int(observability.AttrChatHistoryLength, len(request.History)),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	frames := &frameWriter{writer: w, flusher: flusher}

	history := toMessages(request.SanitizedHistory())
	err := s.streamWithFallback(ctx, frames, request.Message, history, request.Model)

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrChatFrames, frames.frames))
	}
	observability.EndSpan(span, err)
}

// streamWithFallback walks the fallback chain. A rate limit, before or during
// the stream, moves on to the next model with an info frame; any other error
// ends the reply with an error frame. The returned error is only used for
// observability.
func (s *Server) streamWithFallback(ctx context.Context, frames *frameWriter, message string, history []ai.Message, model string) error {
	observer := observability.ObserverFromContext(ctx)

	var lastErr error
	for _, currentModel := range protocol.FallbackChain(model) {
		err := s.streamOnce(ctx, frames, ai.ChatRequest{Model: currentModel, History: history, Message: message})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(err, ai.ErrRateLimited) {
			lastErr = err
			if observer != nil {
				observer.Counter(observability.MetricChatFallbackCount).Add(ctx, 1,
					observability.String(observability.AttrChatFallbackModel, currentModel),
				)
				observer.Warn(ctx, "chat model rate limited, falling back",
					observability.String(observability.AttrLLMModel, currentModel),
				)
			}
			if span := observability.SpanFromContext(ctx); span != nil {
				span.AddEvent(observability.EventChatFallback, observability.String(observability.AttrChatFallbackModel, currentModel))
			}
			if writeErr := frames.write(protocol.InfoFrame(fmt.Sprintf("Rate limit for %s, falling back...", currentModel))); writeErr != nil {
				return writeErr
			}
			continue
		}

		if observer != nil {
			observer.Error(ctx, "chat stream failed",
				observability.String(observability.AttrLLMModel, currentModel),
				observability.Error(err),
			)
		}
		if writeErr := frames.write(protocol.ErrorFrame(fmt.Sprintf("An error occurred with model %s: %v", currentModel, err))); writeErr != nil {
			return writeErr
		}
		return err
	}

	exhausted := fmt.Sprintf("All attempted models are currently rate-limited. Please try again later. Last error: %v", lastErr)
	if writeErr := frames.write(protocol.ErrorFrame(exhausted)); writeErr != nil {
		return writeErr
	}
	return fmt.Errorf("fallback chain exhausted: %w", lastErr)
}

// streamOnce streams one model's reply as text frames.
func (s *Server) streamOnce(ctx context.Context, frames *frameWriter, request ai.ChatRequest) error {
	stream, err := s.chat.StreamChat(ctx, request)
	if err != nil {
		return err
	}

	for event, streamErr := range stream.Iter() {
		if streamErr != nil {
			return streamErr
		}
		if event.Type != ai.StreamEventContent || event.Content == "" {
			continue
		}
		if err := frames.write(protocol.TextFrame(event.Content)); err != nil {
			return err
		}
	}
	return nil
}

// toMessages converts sanitized history entries to provider messages.
func toMessages(history []protocol.HistoryEntry) []ai.Message {
	messages := make([]ai.Message, 0, len(history))
	for _, entry := range history {
		role := ai.RoleUser
		if entry.Role == protocol.RoleModel {
			role = ai.RoleModel
		}
		messages = append(messages, ai.Message{Role: role, Content: entry.Text()})
	}
	return messages
}
