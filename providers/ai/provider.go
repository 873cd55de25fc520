package ai

import (
	"context"
	"net/http"
)

// Provider is the interface every LLM backend must satisfy to execute prompt
// nodes. Use [StreamProvider] in addition when the backend supports
// multi-turn streaming chat.
type Provider interface {
	// Generate sends a single prompt and returns the completed response.
	// Failures are classified: errors.Is(err, ErrRateLimited) and
	// errors.Is(err, ErrModelNotFound) hold for quota and unknown-model
	// replies, errors.Is(err, ErrGeneration) for any other backend rejection.
	Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error)

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// StreamProvider is an optional interface for providers that can stream a
// chat reply. Callers detect support via type assertion:
// provider.(StreamProvider).
type StreamProvider interface {
	Provider

	// StreamChat sends the history plus a new user message and returns a
	// ChatStream yielding text deltas as they arrive. Pre-stream errors
	// (auth, quota, network) are returned directly and classified like
	// Generate errors. Mid-stream errors are yielded through the iterator.
	StreamChat(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// GenerateRequest is a single prompt execution.
type GenerateRequest struct {
	Model  string
	Prompt string

	// GoogleSearch enables the provider's web search grounding tool.
	GoogleSearch bool
}

// GenerateResponse is the completed reply to a GenerateRequest.
type GenerateResponse struct {
	Text         string
	Model        string
	FinishReason string
	Usage        *Usage
	Grounding    *Grounding
}

// Usage reports token consumption for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Grounding carries the web search metadata attached to a grounded reply.
type Grounding struct {
	SearchQueries []string `json:"search_queries,omitempty"`
	Sources       []Source `json:"sources,omitempty"`

	// Suggestions is the search entry point rendered as markdown.
	Suggestions string `json:"suggestions,omitempty"`
}

// Source is a web page the reply was grounded on.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a chat history.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is a streaming chat call: the prior history and the new user
// message, which is sent after the history.
type ChatRequest struct {
	Model   string
	History []Message
	Message string
}
