package graph

import (
	"strings"
	"unicode/utf8"
)

// ConnectedInput describes one incoming edge of a node from the point of view
// of the prompt author: the token to paste into the prompt and where it comes from.
type ConnectedInput struct {
	// Token is the {{key}} marker that will be substituted at run time.
	Token string `json:"token"`

	// SourceName is the label of the upstream node.
	SourceName string `json:"sourceName"`

	// SourceKey is the placeholder key without braces.
	SourceKey string `json:"sourceKey"`

	// SourceID and SourceHandle identify the edge origin.
	SourceID     string `json:"sourceId"`
	SourceHandle string `json:"sourceHandle"`
}

// ResolveConnectedInputs lists the connected inputs of targetID in edge
// insertion order. Edges whose source node no longer exists are skipped.
// Duplicate tokens are kept as they are: two edges resolving to the same key
// both appear in the result.
func ResolveConnectedInputs(model *Model, targetID string) []ConnectedInput {
	model.mu.RLock()
	defer model.mu.RUnlock()

	inputs := make([]ConnectedInput, 0)
	for _, edge := range model.edges {
		if edge.Target != targetID {
			continue
		}
		source, exists := model.nodes[edge.Source]
		if !exists {
			continue
		}
		key := source.PlaceholderKey(edge.SourceHandle)
		inputs = append(inputs, ConnectedInput{
			Token:        Token(key),
			SourceName:   source.DisplayName(),
			SourceKey:    key,
			SourceID:     source.ID,
			SourceHandle: edge.SourceHandle,
		})
	}
	return inputs
}

// InsertPlaceholder splices token into text at cursor and returns the new text
// together with the cursor positioned right after the inserted token.
// The cursor counts characters (runes), not bytes, and is clamped into
// [0, length of text] before splicing.
func InsertPlaceholder(text string, cursor int, token string) (string, int) {
	insertAt := min(max(cursor, 0), utf8.RuneCountInString(text))

	offset := 0
	for range insertAt {
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}

	var builder strings.Builder
	builder.Grow(len(text) + len(token))
	builder.WriteString(text[:offset])
	builder.WriteString(token)
	builder.WriteString(text[offset:])

	return builder.String(), insertAt + utf8.RuneCountInString(token)
}

// Binding maps a placeholder key to the value substituted for it.
type Binding struct {
	Key   string
	Value string
}

// Substitute replaces every {{key}} occurrence in prompt with the bound value,
// one key at a time in order of first binding. When several bindings share a
// key, the last value wins. A value that contains a token bound later is
// expanded by that later replacement. Tokens without a binding are left in
// place.
func Substitute(prompt string, bindings []Binding) string {
	if len(bindings) == 0 {
		return prompt
	}

	resolved := make(map[string]string, len(bindings))
	order := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		if _, seen := resolved[binding.Key]; !seen {
			order = append(order, binding.Key)
		}
		resolved[binding.Key] = binding.Value
	}

	for _, key := range order {
		prompt = strings.ReplaceAll(prompt, Token(key), resolved[key])
	}
	return prompt
}
