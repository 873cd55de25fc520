package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leofalp/sequencer/providers/observability"
)

// maxResponseBodySize caps how much of a response body is read into memory
// (10 MB).
const maxResponseBodySize int64 = 10 * 1024 * 1024

// HeaderOption is an extra request header set after the defaults, so it can
// override Content-Type or Authorization.
type HeaderOption struct {
	Key   string
	Value string
}

// HTTPStatusError is returned when the server answers with a non-2xx status.
// Body holds the (possibly truncated) response payload.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (h *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", h.StatusCode, h.Body)
}

// DoPostSync performs a JSON POST request and decodes a 2xx response body into
// OutputStruct. A non-empty apiKey is sent as a Bearer token unless a header
// option overrides it.
//
// Context errors and transport failures are returned wrapped. Non-2xx
// responses yield an *HTTPStatusError. The response body is always closed;
// close failures are logged and never replace the primary error.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	request, err := newJSONRequest(ctx, url, apiKey, jsonBody, headers)
	if err != nil {
		return nil, nil, err
	}

	requestStart := time.Now()
	response, err := httpClient.Do(request)
	requestDuration := time.Since(requestStart)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return response, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(response.Body)

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(responseBody)),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, &HTTPStatusError{StatusCode: response.StatusCode, Body: string(responseBody)}
	}

	var output OutputStruct
	if err = json.Unmarshal(responseBody, &output); err != nil {
		return response, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s",
			response.StatusCode, err, TruncateString(string(responseBody), DefaultMaxStringLength))
	}

	return response, &output, nil
}

func newJSONRequest(ctx context.Context, url string, apiKey string, jsonBody []byte, headers []HeaderOption) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		request.Header.Set(header.Key, header.Value)
	}
	return request, nil
}

// CloseWithLog closes closer and logs a warning if that fails. Meant for
// deferred body closes where the error has nowhere else to go.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
