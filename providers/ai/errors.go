package ai

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/leofalp/sequencer/internal/utils"
)

var (
	// ErrRateLimited reports that the backend rejected the request because a
	// quota was exhausted (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound reports that the requested model does not exist or the
	// API key cannot access it (HTTP 404).
	ErrModelNotFound = errors.New("model not found")

	// ErrGeneration reports any other rejection by the backend.
	ErrGeneration = errors.New("generation failed")
)

// ClassifyError tags err with one of the package sentinels when it carries a
// backend HTTP status. Errors without a status (network, context, decoding)
// are returned unchanged. The original error stays reachable through
// errors.As.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrModelNotFound) || errors.Is(err, ErrGeneration) {
		return err
	}

	var statusErr *utils.HTTPStatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	switch statusErr.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrModelNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
}
