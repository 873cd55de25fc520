package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/ai"
	"github.com/leofalp/sequencer/providers/observability"
)

// StreamChat implements ai.StreamProvider. It calls streamGenerateContent
// with alt=sse; each SSE event carries one generateContentResponse whose text
// parts are the next slice of the reply.
func (g *GeminiProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	model := g.modelOrDefault(request.Model)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMEndpoint, g.baseURL),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool(observability.AttrLLMStreaming, true),
		)
	}

	if observer != nil {
		observer.Trace(ctx, "Gemini provider preparing streaming request",
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrChatHistoryLength, len(request.History)),
		)
		observer.Counter(observability.MetricLLMRequestCount).Add(ctx, 1,
			observability.String(observability.AttrLLMModel, model),
			observability.Bool(observability.AttrLLMStreaming, true),
		)
	}

	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", g.baseURL, model)

	httpResponse, err := utils.DoPostStream(
		ctx,
		g.client,
		streamURL,
		"", // authentication goes through the x-goog-api-key header
		chatToGemini(request),
		utils.HeaderOption{Key: apiKeyHeader, Value: g.apiKey},
	)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, toAPIError(err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)
		if span != nil {
			defer span.AddEvent(observability.EventLLMRequestEnd)
		}

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			var chunk generateContentResponse
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse Gemini streaming chunk: %w", parseErr))
				return
			}

			events, chunkErr := chunkToStreamEvents(&chunk)
			for _, event := range events {
				if !yield(event, nil) {
					return
				}
			}
			if chunkErr != nil {
				yield(ai.StreamEvent{}, chunkErr)
				return
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// chunkToStreamEvents converts one streamed chunk into events: the text
// delta, usage when present, and done when the candidate carries a finish
// reason. A chunk reporting a blocked prompt ends the stream with a
// generation error.
func chunkToStreamEvents(chunk *generateContentResponse) ([]ai.StreamEvent, error) {
	var events []ai.StreamEvent

	if len(chunk.Candidates) == 0 {
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked: %s", ai.ErrGeneration, chunk.PromptFeedback.BlockReason)
		}
		if usage := mapUsage(chunk.UsageMetadata); usage != nil {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage})
		}
		return events, nil
	}

	candidate := chunk.Candidates[0]
	if text := candidateText(candidate); text != "" {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: text})
	}

	if usage := mapUsage(chunk.UsageMetadata); usage != nil {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage})
	}

	if candidate.FinishReason != "" {
		events = append(events, ai.StreamEvent{
			Type:         ai.StreamEventDone,
			FinishReason: mapFinishReason(candidate.FinishReason),
		})
	}

	return events, nil
}
