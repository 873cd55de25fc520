package sequence

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/sequencer/core/graph"
	"github.com/leofalp/sequencer/internal/utils"
	"github.com/leofalp/sequencer/providers/ai"
)

// Executor runs prompt graphs against an ai.Provider. It is safe for
// concurrent use; every Run works on its own state.
type Executor struct {
	provider ai.Provider
	config   executorConfig
}

// Result is the outcome of a successful run.
type Result struct {
	// Outputs maps every executed node id to its output: the generated text
	// for prompt nodes, "" for user input nodes.
	Outputs map[string]string

	// Model is the model every prompt node was sent to.
	Model string

	// Grounding holds the search metadata of grounded prompt nodes.
	Grounding map[string]*ai.Grounding
}

// NodeError reports which prompt node failed. Err is the provider error, so
// errors.Is(err, ai.ErrRateLimited) keeps working through it.
type NodeError struct {
	NodeID string
	Err    error
}

func (n *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", n.NodeID, n.Err)
}

func (n *NodeError) Unwrap() error {
	return n.Err
}

// NewExecutor creates an Executor generating through provider.
func NewExecutor(provider ai.Provider, opts ...Option) *Executor {
	executor := &Executor{provider: provider}
	for _, opt := range opts {
		opt(&executor.config)
	}
	return executor
}

// Run executes the graph level by level. Nodes of one level run in parallel
// (bounded by WithMaxConcurrency); the first failing node cancels its level
// and the run returns a *NodeError. A cycle fails the run with ErrCycle
// before any model call.
//
// For each prompt node, every {{key}} bound by an incoming edge is replaced
// in the prompt before it is sent, with Google Search grounding when the node
// asks for it.
func (e *Executor) Run(ctx context.Context, nodes []graph.DocumentNode, edges []graph.Edge, model string) (*Result, error) {
	timer := utils.NewTimer()
	run := e.observeRunStart(&ctx, len(nodes), len(edges), model)

	executionPlan, err := newPlan(nodes, edges)
	if err != nil {
		run.failed(ctx, err, timer.Stop())
		return nil, err
	}

	result := &Result{
		Outputs:   make(map[string]string, len(executionPlan.order)),
		Model:     model,
		Grounding: make(map[string]*ai.Grounding),
	}

	for levelIndex, levelNodeIDs := range executionPlan.levels {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("context canceled before level %d: %w", levelIndex, err)
			run.failed(ctx, err, timer.Stop())
			return nil, err
		}
		run.levelStart(levelIndex, len(levelNodeIDs))

		if err := e.runLevel(ctx, executionPlan, levelNodeIDs, levelIndex, result); err != nil {
			run.failed(ctx, err, timer.Stop())
			return nil, err
		}
	}

	run.completed(ctx, len(result.Outputs), timer.Stop())
	return result, nil
}

// nodeOutcome is what one goroutine produces for its node.
type nodeOutcome struct {
	text      string
	grounding *ai.Grounding
}

// runLevel executes one level. Outputs of earlier levels are only read while
// the level runs; this level's outcomes are merged after every goroutine
// returned.
func (e *Executor) runLevel(ctx context.Context, executionPlan *plan, levelNodeIDs []string, levelIndex int, result *Result) error {
	outcomes := make([]nodeOutcome, len(levelNodeIDs))

	group, groupContext := errgroup.WithContext(ctx)
	if e.config.maxConcurrency > 0 {
		group.SetLimit(e.config.maxConcurrency)
	}

	for index, nodeID := range levelNodeIDs {
		node := executionPlan.nodes[nodeID]
		data, isPrompt := node.Data.(*graph.PromptData)
		if !isPrompt {
			continue
		}

		prompt := graph.Substitute(data.Prompt, executionPlan.bindings(nodeID, result.Outputs))
		request := ai.GenerateRequest{Model: result.Model, Prompt: prompt, GoogleSearch: data.GoogleSearch}

		group.Go(func() error {
			if groupContext.Err() != nil {
				return groupContext.Err()
			}
			outcome, err := e.generate(groupContext, nodeID, levelIndex, request)
			if err != nil {
				return &NodeError{NodeID: nodeID, Err: err}
			}
			outcomes[index] = outcome
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for index, nodeID := range levelNodeIDs {
		result.Outputs[nodeID] = outcomes[index].text
		if outcomes[index].grounding != nil {
			result.Grounding[nodeID] = outcomes[index].grounding
		}
	}
	return nil
}

// generate performs the model call of one prompt node.
func (e *Executor) generate(ctx context.Context, nodeID string, levelIndex int, request ai.GenerateRequest) (nodeOutcome, error) {
	node := e.observeNodeStart(&ctx, nodeID, levelIndex, request.GoogleSearch)
	timer := utils.NewTimer()

	if e.config.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.nodeTimeout)
		defer cancel()
	}

	response, err := e.provider.Generate(ctx, request)
	timer.Stop()
	if err != nil {
		node.failed(ctx, err, timer.Duration())
		return nodeOutcome{}, err
	}

	node.completed(ctx, len(response.Text), timer.Duration())
	return nodeOutcome{text: response.Text, grounding: response.Grounding}, nil
}
