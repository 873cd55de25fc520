package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/ai"
)

// APIError is a Gemini error reply. It wraps the transport-level
// *utils.HTTPStatusError so the status stays reachable through errors.As.
type APIError struct {
	Code    int
	Status  string
	Message string
	Err     error
}

func (a *APIError) Error() string {
	if a.Status == "" {
		return fmt.Sprintf("%d %s", a.Code, a.Message)
	}
	return fmt.Sprintf("%d %s: %s", a.Code, a.Status, a.Message)
}

func (a *APIError) Unwrap() error {
	return a.Err
}

// generateToGemini converts an ai.GenerateRequest to a single-turn Gemini
// request, adding the Google Search tool when grounding is requested.
func generateToGemini(request ai.GenerateRequest) generateContentRequest {
	geminiRequest := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: request.Prompt}}}},
	}
	if request.GoogleSearch {
		geminiRequest.Tools = []tool{{GoogleSearch: &googleSearchTool{}}}
	}
	return geminiRequest
}

// chatToGemini converts an ai.ChatRequest to a multi-turn Gemini request. The
// new message is appended after the history as a user turn. Empty history
// entries are dropped since Gemini rejects parts without text.
func chatToGemini(request ai.ChatRequest) generateContentRequest {
	contents := make([]content, 0, len(request.History)+1)
	for _, message := range request.History {
		if message.Content == "" {
			continue
		}
		role := "user"
		if message.Role == ai.RoleModel {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: message.Content}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: request.Message}}})
	return generateContentRequest{Contents: contents}
}

// geminiToGeneric maps a complete reply. A reply without candidates is a
// generation error, carrying the block reason when the prompt was filtered.
func geminiToGeneric(response generateContentResponse, model string) (*ai.GenerateResponse, error) {
	if len(response.Candidates) == 0 {
		reason := "no candidates returned"
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + response.PromptFeedback.BlockReason
		}
		return nil, fmt.Errorf("%w: %s", ai.ErrGeneration, reason)
	}

	candidate := response.Candidates[0]
	result := &ai.GenerateResponse{
		Text:         candidateText(candidate),
		Model:        model,
		FinishReason: mapFinishReason(candidate.FinishReason),
		Usage:        mapUsage(response.UsageMetadata),
		Grounding:    mapGroundingMetadata(candidate.GroundingMetadata),
	}
	if response.ModelVersion != "" {
		result.Model = response.ModelVersion
	}
	return result, nil
}

// candidateText joins the non-thought text parts of a candidate.
func candidateText(candidate candidate) string {
	if candidate.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		if p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}
	return text.String()
}

// mapFinishReason converts a Gemini finish reason to its generic form.
func mapFinishReason(geminiReason string) string {
	switch geminiReason {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return "stop"
	}
}

func mapUsage(usage *usageMetadata) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}

// mapGroundingMetadata converts Gemini grounding metadata to the generic
// format. The search entry point widget is HTML and is rendered to markdown;
// if conversion fails the suggestions are left empty.
func mapGroundingMetadata(metadata *groundingMetadata) *ai.Grounding {
	if metadata == nil {
		return nil
	}

	result := &ai.Grounding{SearchQueries: metadata.WebSearchQueries}
	for _, chunk := range metadata.GroundingChunks {
		if chunk.Web != nil {
			result.Sources = append(result.Sources, ai.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
	}

	if metadata.SearchEntryPoint != nil && metadata.SearchEntryPoint.RenderedContent != "" {
		markdown, err := htmltomarkdown.ConvertString(metadata.SearchEntryPoint.RenderedContent)
		if err == nil {
			result.Suggestions = strings.TrimSpace(markdown)
		}
	}
	return result
}

// toAPIError decodes the Gemini error envelope out of a status error and
// classifies the result. Bodies that are not an envelope keep the raw status
// error.
func toAPIError(err error) error {
	var statusErr *utils.HTTPStatusError
	if !errors.As(err, &statusErr) {
		return ai.ClassifyError(err)
	}

	var envelope errorEnvelope
	if jsonErr := json.Unmarshal([]byte(statusErr.Body), &envelope); jsonErr != nil || envelope.Error.Message == "" {
		return ai.ClassifyError(err)
	}

	return ai.ClassifyError(&APIError{
		Code:    statusErr.StatusCode,
		Status:  envelope.Error.Status,
		Message: envelope.Error.Message,
		Err:     err,
	})
}
