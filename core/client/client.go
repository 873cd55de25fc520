package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/observability"
)

// TransportError reports that a request never produced a usable response:
// the connection failed or the service answered with a non-2xx status.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (t *TransportError) Error() string {
	if t.StatusCode != 0 {
		return fmt.Sprintf("HTTP error! status: %d", t.StatusCode)
	}
	return t.Err.Error()
}

func (t *TransportError) Unwrap() error {
	return t.Err
}

// Client talks to the execution service. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	observer    observability.Provider
	middlewares []MiddlewareConfig

	run    RunFunc
	stream StreamFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// WithObserver attaches an observability provider. Its middleware is placed
// outermost so it sees the final outcome of every request.
func WithObserver(observer observability.Provider) Option {
	return func(client *Client) {
		client.observer = observer
	}
}

// WithMiddleware appends middlewares to the chain.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(client *Client) {
		client.middlewares = append(client.middlewares, middlewares...)
	}
}

// New creates a client for the service at baseURL, e.g.
// "http://localhost:8000". A trailing slash or "/api" suffix is tolerated.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", baseURL)
	}

	trimmed := strings.TrimSuffix(strings.TrimRight(parsed.String(), "/"), "/api")
	client := &Client{
		baseURL:    trimmed,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}

	for index, middleware := range client.middlewares {
		if middleware.Run == nil {
			return nil, fmt.Errorf("middleware at index %d has a nil Run function", index)
		}
	}

	middlewares := client.middlewares
	if client.observer != nil {
		middlewares = append([]MiddlewareConfig{NewObservabilityMiddleware(client.observer)}, middlewares...)
	}
	client.run = buildRunChain(client.postRun, middlewares)
	client.stream = buildStreamChain(client.postChatStream, middlewares)
	return client, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RunGraph posts a run request and returns the decoded reply. A reply
// carrying an error message is returned as-is with a nil error; only
// transport failures produce a *TransportError.
func (c *Client) RunGraph(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error) {
	return c.run(ctx, request)
}

// StartChatStream opens a chat stream. The caller must close the returned
// body.
func (c *Client) StartChatStream(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error) {
	return c.stream(ctx, request)
}

// Health checks that the service answers GET /health.
func (c *Client) Health(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+protocol.RouteHealth, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer utils.CloseWithLog(response.Body)
	if response.StatusCode != http.StatusOK {
		return &TransportError{StatusCode: response.StatusCode, Err: fmt.Errorf("unexpected status %s", response.Status)}
	}
	return nil
}

func (c *Client) postRun(ctx context.Context, request protocol.RunRequest) (*protocol.RunResponse, error) {
	_, response, err := utils.DoPostSync[protocol.RunResponse](ctx, c.httpClient, c.baseURL+protocol.RouteRunSequenceGraph, "", request)
	if err != nil {
		return nil, asTransportError(err)
	}
	return response, nil
}

func (c *Client) postChatStream(ctx context.Context, request protocol.ChatStreamRequest) (io.ReadCloser, error) {
	response, err := utils.DoPostStream(ctx, c.httpClient, c.baseURL+protocol.RouteChatStream, "", request)
	if err != nil {
		return nil, asTransportError(err)
	}
	return response.Body, nil
}

func asTransportError(err error) error {
	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		return &TransportError{StatusCode: statusErr.StatusCode, Err: err}
	}
	return &TransportError{Err: err}
}
