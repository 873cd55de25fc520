package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/leofalp/sequencer/internal/utils"
)

var (
	// ErrNodeNotFound is returned when an operation names a node id that is
	// not part of the model.
	ErrNodeNotFound = errors.New("node not found")

	// ErrReadOnlyField is returned when a caller tries to edit a derived field.
	ErrReadOnlyField = errors.New("field is read-only")

	// ErrFieldNotApplicable is returned when a field does not exist on the
	// node's kind, or the value has the wrong type for the field.
	ErrFieldNotApplicable = errors.New("field not applicable to node")

	// ErrUnknownKind is returned by AddNode for kinds outside KindPrompt and KindUserInput.
	ErrUnknownKind = errors.New("unknown node kind")
)

// Field names a user-editable node attribute.
type Field string

const (
	FieldName         Field = "name"
	FieldPrompt       Field = "prompt"
	FieldGoogleSearch Field = "googleSearch"
	FieldTicker       Field = "ticker"
	FieldCompanyName  Field = "company_name"
	FieldTimeHorizon  Field = "time_horizon"

	// FieldOutput is listed so it can be rejected explicitly: outputs are
	// written by MergeOutputs only.
	FieldOutput Field = "output"
)

// NodeInit carries the initial values for AddNode. A nil Data is replaced by
// the zero payload of the requested kind.
type NodeInit struct {
	Name     string
	Position Position
	Data     NodeData
}

// idAllocator hands out numeric string ids. It is owned by a single Model and
// only moves forward, except when explicitly reseeded after a load.
type idAllocator struct {
	next int
}

func newIDAllocator() idAllocator {
	return idAllocator{next: 1}
}

// allocate returns the next id not already in use.
func (i *idAllocator) allocate(taken func(string) bool) string {
	for {
		candidate := strconv.Itoa(i.next)
		i.next++
		if !taken(candidate) {
			return candidate
		}
	}
}

// reseed moves the counter to one past the highest numeric id in ids.
// Non-numeric ids are ignored.
func (i *idAllocator) reseed(ids []string) {
	highest := 0
	for _, id := range ids {
		numeric, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if numeric > highest {
			highest = numeric
		}
	}
	i.next = highest + 1
}

// Model is the editable prompt graph: nodes in insertion order, edges in
// insertion order, and the allocator used for new node ids.
//
// All methods are safe for concurrent use. Accessors return copies, so a
// node obtained from the model can be inspected while the model keeps changing.
type Model struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string
	edges     []Edge
	ids       idAllocator
}

// NewModel returns an empty model whose first allocated id is "1".
func NewModel() *Model {
	return &Model{
		nodes:     make(map[string]*Node),
		nodeOrder: make([]string, 0),
		edges:     make([]Edge, 0),
		ids:       newIDAllocator(),
	}
}

// AddNode creates a node of the given kind with a freshly allocated id and
// returns a copy of it.
func (m *Model) AddNode(kind Kind, initial NodeInit) (*Node, error) {
	data := initial.Data
	switch kind {
	case KindPrompt:
		if data == nil {
			data = &PromptData{}
		}
	case KindUserInput:
		if data == nil {
			data = &UserInputData{}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if data.Kind() != kind {
		return nil, fmt.Errorf("%w: %s data for a %s node", ErrFieldNotApplicable, data.Kind(), kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node := &Node{
		ID:       m.ids.allocate(m.hasNodeLocked),
		Name:     initial.Name,
		Position: initial.Position,
		Data:     data.clone(),
	}
	m.insertLocked(node)

	return node.clone(), nil
}

// AddEdge appends an edge from source/sourceHandle into the input handle of
// target. Endpoints are not validated: edges may reference nodes that do not
// exist (yet), and consumers skip them.
func (m *Model) AddEdge(source, sourceHandle, target string) Edge {
	edge := Edge{
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: InputHandle,
	}

	m.mu.Lock()
	m.edges = append(m.edges, edge)
	m.mu.Unlock()

	return edge
}

// RemoveEdge deletes every edge matching source, sourceHandle and target and
// reports how many were removed.
func (m *Model) RemoveEdge(source, sourceHandle, target string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.edges[:0]
	removed := 0
	for _, edge := range m.edges {
		if edge.Source == source && edge.SourceHandle == sourceHandle && edge.Target == target {
			removed++
			continue
		}
		kept = append(kept, edge)
	}
	m.edges = kept
	return removed
}

// RemoveNode deletes a node together with every edge touching it.
func (m *Model) RemoveNode(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasNodeLocked(nodeID) {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}

	delete(m.nodes, nodeID)
	for index, id := range m.nodeOrder {
		if id == nodeID {
			m.nodeOrder = append(m.nodeOrder[:index], m.nodeOrder[index+1:]...)
			break
		}
	}

	kept := m.edges[:0]
	for _, edge := range m.edges {
		if edge.Source == nodeID || edge.Target == nodeID {
			continue
		}
		kept = append(kept, edge)
	}
	m.edges = kept

	return nil
}

// MoveNode updates the canvas position of a node.
func (m *Model) MoveNode(nodeID string, position Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, exists := m.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	node.Position = position
	return nil
}

// SetNodeField edits one user-editable field. Text fields take a string value,
// FieldGoogleSearch takes a bool. FieldOutput is always rejected.
func (m *Model) SetNodeField(nodeID string, field Field, value any) error {
	if field == FieldOutput {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node, exists := m.nodes[nodeID]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}

	if field == FieldName {
		text, ok := value.(string)
		if !ok {
			return fieldTypeError(field, value)
		}
		node.Name = text
		return nil
	}

	switch data := node.Data.(type) {
	case *PromptData:
		switch field {
		case FieldPrompt:
			text, ok := value.(string)
			if !ok {
				return fieldTypeError(field, value)
			}
			data.Prompt = text
			return nil
		case FieldGoogleSearch:
			enabled, ok := value.(bool)
			if !ok {
				return fieldTypeError(field, value)
			}
			data.GoogleSearch = enabled
			return nil
		}
	case *UserInputData:
		text, ok := value.(string)
		switch field {
		case FieldTicker, FieldCompanyName, FieldTimeHorizon:
			if !ok {
				return fieldTypeError(field, value)
			}
		}
		switch field {
		case FieldTicker:
			data.Ticker = text
			return nil
		case FieldCompanyName:
			data.CompanyName = text
			return nil
		case FieldTimeHorizon:
			data.TimeHorizon = text
			return nil
		}
	}

	return fmt.Errorf("%w: %s on %s node %q", ErrFieldNotApplicable, field, node.Kind(), nodeID)
}

func fieldTypeError(field Field, value any) error {
	return fmt.Errorf("%w: %s does not accept %T", ErrFieldNotApplicable, field, value)
}

// ParseFieldValue converts a textual value into the type SetNodeField expects
// for field.
func ParseFieldValue(field Field, raw string) (any, error) {
	switch field {
	case FieldGoogleSearch:
		enabled, err := utils.ParseStringAs[bool](strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: %w", raw, field, err)
		}
		return enabled, nil
	case FieldOutput:
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	case FieldName, FieldPrompt, FieldTicker, FieldCompanyName, FieldTimeHorizon:
		return raw, nil
	}
	return nil, fmt.Errorf("unknown field %q", field)
}

// MergeOutputs stores the run output of every node id present in outputs and
// returns how many nodes were updated. Nodes absent from the map keep their
// previous output; ids that are not in the model are ignored.
func (m *Model) MergeOutputs(outputs map[string]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := 0
	for nodeID, output := range outputs {
		node, exists := m.nodes[nodeID]
		if !exists {
			continue
		}
		node.Output = output
		merged++
	}
	return merged
}

// Node returns a copy of the node with the given id.
func (m *Model) Node(nodeID string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, exists := m.nodes[nodeID]
	if !exists {
		return nil, false
	}
	return node.clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (m *Model) Nodes() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]*Node, 0, len(m.nodeOrder))
	for _, nodeID := range m.nodeOrder {
		nodes = append(nodes, m.nodes[nodeID].clone())
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (m *Model) Edges() []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edges := make([]Edge, len(m.edges))
	copy(edges, m.edges)
	return edges
}

// IncomingEdges returns the edges whose target is nodeID, in insertion order.
func (m *Model) IncomingEdges(nodeID string) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	incoming := make([]Edge, 0)
	for _, edge := range m.edges {
		if edge.Target == nodeID {
			incoming = append(incoming, edge)
		}
	}
	return incoming
}

// Len returns the number of nodes.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodeOrder)
}

// Outputs returns the current output of every node that has one.
func (m *Model) Outputs() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outputs := make(map[string]string)
	for _, nodeID := range m.nodeOrder {
		if output := m.nodes[nodeID].Output; output != "" {
			outputs[nodeID] = output
		}
	}
	return outputs
}

func (m *Model) hasNodeLocked(nodeID string) bool {
	_, exists := m.nodes[nodeID]
	return exists
}

func (m *Model) insertLocked(node *Node) {
	m.nodes[node.ID] = node
	m.nodeOrder = append(m.nodeOrder, node.ID)
}
