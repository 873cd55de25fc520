package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/ai"
	"github.com/leofalp/sequencer/providers/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	providerName   = "gemini"
	apiKeyHeader   = "x-goog-api-key"
)

// GeminiProvider implements ai.Provider and ai.StreamProvider for Google's
// Gemini API.
type GeminiProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
}

var _ ai.StreamProvider = (*GeminiProvider)(nil)

// New creates a new Gemini provider instance with default values from environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication (GOOGLE_API_KEY is accepted as a fallback)
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
		client:       &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (g *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	g.apiKey = apiKey
	return g
}

// WithBaseURL sets the base URL for the API.
func (g *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	g.baseURL = baseURL
	return g
}

// WithHttpClient sets a custom HTTP client.
func (g *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	g.client = httpClient
	return g
}

// Generate implements ai.Provider. It sends one prompt to the generateContent
// endpoint, with the Google Search tool attached when request.GoogleSearch is
// set.
func (g *GeminiProvider) Generate(ctx context.Context, request ai.GenerateRequest) (*ai.GenerateResponse, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	model := g.modelOrDefault(request.Model)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMEndpoint, g.baseURL),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool(observability.AttrGraphGrounding, request.GoogleSearch),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "Gemini provider preparing request",
			observability.String(observability.AttrLLMModel, model),
			observability.Int("llm.prompt_length", len(request.Prompt)),
			observability.Bool(observability.AttrGraphGrounding, request.GoogleSearch),
		)
		observer.Counter(observability.MetricLLMRequestCount).Add(ctx, 1,
			observability.String(observability.AttrLLMModel, model),
		)
	}

	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)

	httpResponse, response, err := utils.DoPostSync[generateContentResponse](
		ctx,
		g.client,
		url,
		"", // authentication goes through the x-goog-api-key header
		generateToGemini(request),
		utils.HeaderOption{Key: apiKeyHeader, Value: g.apiKey},
	)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "HTTP request failed", observability.Error(err))
		}
		return nil, toAPIError(err)
	}

	if response == nil {
		return nil, fmt.Errorf("%w: empty response from Gemini API: %s", ai.ErrGeneration, httpResponse.Status)
	}

	result, err := geminiToGeneric(*response, model)
	if err != nil {
		return nil, err
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMFinishReason, result.FinishReason),
			observability.Int(observability.AttrHTTPStatusCode, httpResponse.StatusCode),
		)
		if result.Usage != nil {
			span.SetAttributes(observability.Int(observability.AttrLLMTokensTotal, result.Usage.TotalTokens))
		}
		if result.Grounding != nil {
			span.SetAttributes(observability.Int(observability.AttrLLMGroundingQueries, len(result.Grounding.SearchQueries)))
		}
	}

	return result, nil
}

func (g *GeminiProvider) modelOrDefault(model string) string {
	if model == "" {
		return g.defaultModel
	}
	return model
}
