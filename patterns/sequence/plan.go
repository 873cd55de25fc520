package sequence

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leofalp/sequencer/core/graph"
)

var (
	// ErrCycle is returned when the edges form a cycle, so no execution
	// order exists.
	ErrCycle = errors.New("cycle detected in graph")

	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")
)

// plan is a validated graph ready for execution.
type plan struct {
	nodes    map[string]*graph.Node
	order    []string
	incoming map[string][]graph.Edge
	levels   [][]string
}

// newPlan converts the persisted nodes and groups them into topological
// levels. Edges touching an unknown node are ignored.
func newPlan(documentNodes []graph.DocumentNode, edges []graph.Edge) (*plan, error) {
	executionPlan := &plan{
		nodes:    make(map[string]*graph.Node, len(documentNodes)),
		order:    make([]string, 0, len(documentNodes)),
		incoming: make(map[string][]graph.Edge),
	}

	for _, documentNode := range documentNodes {
		if _, exists := executionPlan.nodes[documentNode.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, documentNode.ID)
		}
		node, err := documentNode.ToNode()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", documentNode.ID, err)
		}
		executionPlan.nodes[node.ID] = node
		executionPlan.order = append(executionPlan.order, node.ID)
	}

	inDegree := make(map[string]int, len(executionPlan.order))
	for _, nodeID := range executionPlan.order {
		inDegree[nodeID] = 0
	}
	adjacency := make(map[string][]string)
	for _, edge := range edges {
		_, sourceKnown := executionPlan.nodes[edge.Source]
		_, targetKnown := executionPlan.nodes[edge.Target]
		if !sourceKnown || !targetKnown {
			continue
		}
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		inDegree[edge.Target]++
		executionPlan.incoming[edge.Target] = append(executionPlan.incoming[edge.Target], edge)
	}

	levels, err := kahnLevels(inDegree, adjacency, executionPlan.order)
	if err != nil {
		return nil, err
	}
	executionPlan.levels = levels
	return executionPlan, nil
}

// kahnLevels groups node ids by topological level (level 0 = roots). Within
// a level nodes keep their insertion order. inDegree is consumed.
func kahnLevels(inDegree map[string]int, adjacency map[string][]string, nodeOrder []string) ([][]string, error) {
	nodePosition := make(map[string]int, len(nodeOrder))
	for index, nodeID := range nodeOrder {
		nodePosition[nodeID] = index
	}
	byPosition := func(a, b string) int {
		return nodePosition[a] - nodePosition[b]
	}

	currentLevel := make([]string, 0)
	for _, nodeID := range nodeOrder {
		if inDegree[nodeID] == 0 {
			currentLevel = append(currentLevel, nodeID)
		}
	}

	levels := make([][]string, 0)
	processedCount := 0

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		processedCount += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, nodeID := range currentLevel {
			for _, neighbor := range adjacency[nodeID] {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					nextLevel = append(nextLevel, neighbor)
				}
			}
		}
		slices.SortFunc(nextLevel, byPosition)
		currentLevel = nextLevel
	}

	if processedCount != len(nodeOrder) {
		cycleNodes := make([]string, 0)
		for _, nodeID := range nodeOrder {
			if inDegree[nodeID] > 0 {
				cycleNodes = append(cycleNodes, nodeID)
			}
		}
		return nil, fmt.Errorf("%w involving nodes: %v", ErrCycle, cycleNodes)
	}

	return levels, nil
}

// bindings collects the placeholder values a prompt node receives from its
// incoming edges, in edge order. User input sources bind the field named by
// the edge's source handle; edges without a handle are skipped. Prompt
// sources bind their output under their sanitized name.
func (p *plan) bindings(nodeID string, outputs map[string]string) []graph.Binding {
	var result []graph.Binding
	for _, edge := range p.incoming[nodeID] {
		source := p.nodes[edge.Source]

		switch data := source.Data.(type) {
		case *graph.UserInputData:
			if edge.SourceHandle == "" {
				continue
			}
			value, _ := data.Value(edge.SourceHandle)
			result = append(result, graph.Binding{Key: source.PlaceholderKey(edge.SourceHandle), Value: value})
		default:
			output, done := outputs[source.ID]
			if !done {
				continue
			}
			result = append(result, graph.Binding{Key: source.PlaceholderKey(edge.SourceHandle), Value: output})
		}
	}
	return result
}
