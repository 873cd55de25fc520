package protocol

import (
	"github.com/leofalp/sequencer/core/graph"
)

// Route paths served by the execution service.
const (
	RouteRunSequenceGraph = "/api/run-sequence-graph"
	RouteChatStream       = "/api/chat-stream"
	RouteHealth           = "/health"
)

// RunRequest is the body of POST /api/run-sequence-graph. Nodes carry the same
// shape as a persisted document, so either "kind" or the legacy "type" field
// identifies the node variant.
type RunRequest struct {
	Nodes []graph.DocumentNode `json:"nodes"`
	Edges []graph.Edge         `json:"edges"`
	Model string               `json:"model,omitempty"`
}

// NewRunRequest snapshots model into a run request. Outputs are never sent.
func NewRunRequest(model *graph.Model, modelID string) RunRequest {
	document := graph.Save(model)
	return RunRequest{
		Nodes: document.Nodes,
		Edges: document.Edges,
		Model: modelID,
	}
}

// RunResponse is the reply of the run endpoint: either outputs keyed by node
// id together with the model used, or a single error message.
type RunResponse struct {
	Outputs   map[string]string `json:"outputs,omitempty"`
	ModelUsed string            `json:"model_used,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Roles used in chat history entries.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// HistoryEntry is one prior chat turn as sent to the chat endpoint.
type HistoryEntry struct {
	Role     string   `json:"role"`
	Parts    []string `json:"parts"`
	IsSystem bool     `json:"isSystem,omitempty"`
}

// Text returns the first part, or "" when there is none.
func (h HistoryEntry) Text() string {
	if len(h.Parts) == 0 {
		return ""
	}
	return h.Parts[0]
}

// ChatStreamRequest is the body of POST /api/chat-stream.
type ChatStreamRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
	Model   string         `json:"model,omitempty"`
}

// SanitizedHistory returns the history the backend forwards to the model:
// system entries are dropped and a trailing user entry that repeats Message
// is removed.
func (c ChatStreamRequest) SanitizedHistory() []HistoryEntry {
	history := c.History
	if count := len(history); count > 0 {
		last := history[count-1]
		if last.Role == RoleUser && len(last.Parts) > 0 && last.Parts[0] == c.Message {
			history = history[:count-1]
		}
	}

	sanitized := make([]HistoryEntry, 0, len(history))
	for _, entry := range history {
		if entry.IsSystem {
			continue
		}
		sanitized = append(sanitized, HistoryEntry{Role: entry.Role, Parts: entry.Parts})
	}
	return sanitized
}
