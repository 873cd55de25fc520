package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/patterns/sequence"
	"github.com/leofalp/sequencer/providers/ai"
	"github.com/leofalp/sequencer/providers/observability"
)

// handleRunSequenceGraph executes the posted graph. Execution failures are
// reported in the body's error field with status 200, so the editor can show
// them next to the graph; only an unreadable body is a 400.
func (s *Server) handleRunSequenceGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request protocol.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.RunResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	model := request.Model
	if model == "" {
		model = protocol.DefaultRunModel
	}

	result, err := s.executor.Run(ctx, request.Nodes, request.Edges, model)
	if err != nil {
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Warn(ctx, "sequence run returned an error reply",
				observability.String(observability.AttrLLMModel, model),
				observability.Error(err),
			)
		}
		writeJSON(w, http.StatusOK, protocol.RunResponse{Error: runErrorMessage(model, err)})
		return
	}

	if observer := observability.ObserverFromContext(ctx); observer != nil {
		for nodeID, grounding := range result.Grounding {
			observer.Debug(ctx, "node grounded on web search",
				observability.String(observability.AttrGraphNodeID, nodeID),
				observability.Int(observability.AttrLLMGroundingQueries, len(grounding.SearchQueries)),
				observability.Int(observability.AttrLLMGroundingSources, len(grounding.Sources)),
			)
		}
	}

	writeJSON(w, http.StatusOK, protocol.RunResponse{Outputs: result.Outputs, ModelUsed: result.Model})
}

// runErrorMessage turns a run failure into the message shown to the user.
// Failures of a model call are described by their cause; anything else, such
// as a cycle, is unexpected.
func runErrorMessage(model string, err error) string {
	var nodeErr *sequence.NodeError
	if !errors.As(err, &nodeErr) {
		return fmt.Sprintf("An unexpected error occurred with model %s: %v", model, err)
	}

	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return fmt.Sprintf("Rate limit exceeded for model %s. Please try again later. Details: %v", model, nodeErr.Err)
	case errors.Is(err, ai.ErrModelNotFound):
		return fmt.Sprintf("Model '%s' not found or not accessible. Please check the model name and your API key permissions.", model)
	default:
		return fmt.Sprintf("An error occurred during content generation with model %s: %v", model, nodeErr.Err)
	}
}
