package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/leofalp/sequencer/internal/utils"
)

// Document is the persisted form of a Model. It is also the node/edge payload
// of a run request.
type Document struct {
	Nodes []DocumentNode `json:"nodes"`
	Edges []Edge         `json:"edges"`
}

// DocumentNode is one persisted node.
//
// Kind is written for every node. Type is the field used by documents saved
// from the original web editor ("custom" or "userInput"); it is read when Kind
// is empty and never written.
type DocumentNode struct {
	ID       string           `json:"id"`
	Kind     Kind             `json:"kind,omitempty"`
	Type     string           `json:"type,omitempty"`
	Position Position         `json:"position"`
	Data     DocumentNodeData `json:"data"`
}

// DocumentNodeData holds the kind-specific fields of a DocumentNode.
// Only the fields of the node's kind are populated by Save. Output is carried
// on run responses from older services and is ignored by Load.
type DocumentNodeData struct {
	Name         string `json:"name"`
	Prompt       string `json:"prompt,omitempty"`
	GoogleSearch bool   `json:"googleSearch,omitempty"`
	Ticker       string `json:"ticker,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	TimeHorizon  string `json:"time_horizon,omitempty"`
	Output       string `json:"output,omitempty"`
}

// ResolvedKind returns Kind, falling back to the legacy Type field.
func (d DocumentNode) ResolvedKind() (Kind, error) {
	if d.Kind != "" {
		switch d.Kind {
		case KindPrompt, KindUserInput:
			return d.Kind, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}

	switch d.Type {
	case legacyKindPrompt, string(KindPrompt):
		return KindPrompt, nil
	case string(KindUserInput):
		return KindUserInput, nil
	case "":
		return "", fmt.Errorf("%w: node %q has no kind", ErrUnknownKind, d.ID)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, d.Type)
}

// ToNode converts the persisted node into a model node. Output is not carried over.
func (d DocumentNode) ToNode() (*Node, error) {
	kind, err := d.ResolvedKind()
	if err != nil {
		return nil, err
	}

	node := &Node{
		ID:       d.ID,
		Name:     d.Data.Name,
		Position: d.Position,
	}
	switch kind {
	case KindPrompt:
		node.Data = &PromptData{
			Prompt:       d.Data.Prompt,
			GoogleSearch: d.Data.GoogleSearch,
		}
	case KindUserInput:
		node.Data = &UserInputData{
			Ticker:      d.Data.Ticker,
			CompanyName: d.Data.CompanyName,
			TimeHorizon: d.Data.TimeHorizon,
		}
	}
	return node, nil
}

// newDocumentNode is the inverse of ToNode, without the output.
func newDocumentNode(node *Node) DocumentNode {
	documentNode := DocumentNode{
		ID:       node.ID,
		Kind:     node.Kind(),
		Position: node.Position,
		Data:     DocumentNodeData{Name: node.Name},
	}
	switch data := node.Data.(type) {
	case *PromptData:
		documentNode.Data.Prompt = data.Prompt
		documentNode.Data.GoogleSearch = data.GoogleSearch
	case *UserInputData:
		documentNode.Data.Ticker = data.Ticker
		documentNode.Data.CompanyName = data.CompanyName
		documentNode.Data.TimeHorizon = data.TimeHorizon
	}
	return documentNode
}

// FormatError reports a document that cannot be loaded: unparsable JSON,
// a missing top-level key, or an invalid node.
type FormatError struct {
	Reason string
	Err    error
}

func (f *FormatError) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("invalid graph document: %s: %v", f.Reason, f.Err)
	}
	return "invalid graph document: " + f.Reason
}

func (f *FormatError) Unwrap() error {
	return f.Err
}

// Save returns the persisted form of model. Outputs are stripped.
func Save(model *Model) Document {
	model.mu.RLock()
	defer model.mu.RUnlock()

	document := Document{
		Nodes: make([]DocumentNode, 0, len(model.nodeOrder)),
		Edges: make([]Edge, len(model.edges)),
	}
	for _, nodeID := range model.nodeOrder {
		document.Nodes = append(document.Nodes, newDocumentNode(model.nodes[nodeID]))
	}
	copy(document.Edges, model.edges)
	return document
}

// Load builds a new model from document. Both Nodes and Edges must be present
// (non-nil); an empty graph is written as two empty arrays. On failure no
// model is returned, so a caller holding a previous model keeps it unchanged.
//
// The id allocator of the new model continues after the highest numeric id
// found in the document.
func Load(document Document) (*Model, error) {
	if document.Nodes == nil {
		return nil, &FormatError{Reason: `missing "nodes"`}
	}
	if document.Edges == nil {
		return nil, &FormatError{Reason: `missing "edges"`}
	}

	model := NewModel()
	ids := make([]string, 0, len(document.Nodes))
	for index, documentNode := range document.Nodes {
		if documentNode.ID == "" {
			return nil, &FormatError{Reason: fmt.Sprintf("node at index %d has no id", index)}
		}
		if model.hasNodeLocked(documentNode.ID) {
			return nil, &FormatError{Reason: fmt.Sprintf("duplicate node id %q", documentNode.ID)}
		}
		node, err := documentNode.ToNode()
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("node %q", documentNode.ID), Err: err}
		}
		model.insertLocked(node)
		ids = append(ids, node.ID)
	}

	for _, edge := range document.Edges {
		if edge.TargetHandle == "" {
			edge.TargetHandle = InputHandle
		}
		model.edges = append(model.edges, edge)
	}

	model.ids.reseed(ids)
	return model, nil
}

// LoadOption configures LoadBytes and LoadFile.
type LoadOption func(*loadOptions)

type loadOptions struct {
	repair bool
}

// WithRepair retries malformed JSON after running it through a JSON repair
// pass (unquoted keys, single quotes, trailing commas, missing brackets).
func WithRepair() LoadOption {
	return func(options *loadOptions) {
		options.repair = true
	}
}

// LoadBytes parses a JSON document and loads it.
func LoadBytes(data []byte, opts ...LoadOption) (*Model, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	var raw map[string]json.RawMessage
	var err error
	if options.repair {
		raw, err = utils.ParseStringAs[map[string]json.RawMessage](string(data))
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &FormatError{Reason: "unparsable JSON", Err: err}
	}

	rawNodes, hasNodes := raw["nodes"]
	if !hasNodes || isJSONNull(rawNodes) {
		return nil, &FormatError{Reason: `missing "nodes"`}
	}
	rawEdges, hasEdges := raw["edges"]
	if !hasEdges || isJSONNull(rawEdges) {
		return nil, &FormatError{Reason: `missing "edges"`}
	}

	document := Document{
		Nodes: make([]DocumentNode, 0),
		Edges: make([]Edge, 0),
	}
	if err := json.Unmarshal(rawNodes, &document.Nodes); err != nil {
		return nil, &FormatError{Reason: `malformed "nodes"`, Err: err}
	}
	if err := json.Unmarshal(rawEdges, &document.Edges); err != nil {
		return nil, &FormatError{Reason: `malformed "edges"`, Err: err}
	}

	return Load(document)
}

// LoadFile reads and loads the document stored at path.
func LoadFile(path string, opts ...LoadOption) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return LoadBytes(data, opts...)
}

// MarshalIndent encodes the persisted form of model with two-space indentation.
func MarshalIndent(model *Model) ([]byte, error) {
	data, err := json.MarshalIndent(Save(model), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph document: %w", err)
	}
	return data, nil
}

// SaveFile writes the persisted form of model to path.
func SaveFile(model *Model, path string) error {
	data, err := MarshalIndent(model)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// IsFormatError reports whether err is, or wraps, a *FormatError.
func IsFormatError(err error) bool {
	var formatError *FormatError
	return errors.As(err, &formatError)
}
