package protocol

import (
	"errors"
	"fmt"
	"slices"
)

// Model identifiers accepted by the execution service.
const (
	ModelGeminiPro       = "gemini-2.5-pro"
	ModelGeminiFlash     = "gemini-2.5-flash"
	ModelGeminiFlashLite = "gemini-2.5-flash-lite"
)

// Defaults used when a request leaves the model empty.
const (
	DefaultRunModel  = ModelGeminiPro
	DefaultChatModel = ModelGeminiFlash
)

// ErrUnknownModel is returned by ParseModel for identifiers outside Models.
var ErrUnknownModel = errors.New("unknown model")

var models = []string{ModelGeminiPro, ModelGeminiFlash, ModelGeminiFlashLite}

// Models returns the supported model identifiers, most capable first. This is
// also the order of the chat fallback chain.
func Models() []string {
	return slices.Clone(models)
}

// ParseModel validates a model identifier.
func ParseModel(model string) (string, error) {
	if !slices.Contains(models, model) {
		return "", fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownModel, model, models)
	}
	return model, nil
}

// FallbackChain lists the models to try for a chat stream starting at model:
// model itself followed by every less capable model. A model outside Models
// has no fallbacks and is tried alone.
func FallbackChain(model string) []string {
	index := slices.Index(models, model)
	if index < 0 {
		return []string{model}
	}
	return slices.Clone(models[index:])
}
