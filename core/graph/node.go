package graph

import (
	"fmt"
	"regexp"
)

// Kind identifies which variant of NodeData a node carries.
type Kind string

const (
	// KindPrompt is a node whose prompt is sent to the model at run time.
	KindPrompt Kind = "prompt"

	// KindUserInput is a node holding typed values entered by the user.
	// Each value is exposed on its own source handle.
	KindUserInput Kind = "userInput"
)

// legacyKindPrompt is the node type written by the original web editor for
// prompt nodes. It is accepted on load and never written.
const legacyKindPrompt = "custom"

// InputHandle is the single target handle every edge connects to.
const InputHandle = "input"

// OutputHandle is the source handle of a prompt node.
const OutputHandle = "output"

// User input source handles. The handle name doubles as the placeholder key.
const (
	HandleTicker      = "ticker"
	HandleCompanyName = "company_name"
	HandleTimeHorizon = "time_horizon"
)

// UserInputHandles lists the source handles of a user input node in display order.
var UserInputHandles = []string{HandleTicker, HandleCompanyName, HandleTimeHorizon}

// Position is the canvas location of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex of the prompt graph.
//
// Data holds the kind-specific fields. Output is written only by MergeOutputs
// after a run and is never persisted.
type Node struct {
	ID       string
	Name     string
	Position Position
	Data     NodeData
	Output   string
}

// Kind returns the variant carried by the node's data.
func (n *Node) Kind() Kind {
	if n.Data == nil {
		return KindPrompt
	}
	return n.Data.Kind()
}

// PlaceholderKey returns the key a downstream prompt uses to reference this
// node through the given source handle.
func (n *Node) PlaceholderKey(sourceHandle string) string {
	if n.Data == nil {
		return SanitizeKey(n.Name, n.ID)
	}
	return n.Data.placeholderKey(n, sourceHandle)
}

// PlaceholderToken wraps PlaceholderKey in the {{key}} marker.
func (n *Node) PlaceholderToken(sourceHandle string) string {
	return Token(n.PlaceholderKey(sourceHandle))
}

// DisplayName returns the label shown for the node when listing connected
// inputs: its name, or a kind-specific fallback when the name is empty.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Data != nil {
		if fallback := n.Data.fallbackName(); fallback != "" {
			return fallback
		}
	}
	return fmt.Sprintf("Node %s", n.ID)
}

// clone returns a deep copy so callers never alias model internals.
func (n *Node) clone() *Node {
	copied := *n
	if n.Data != nil {
		copied.Data = n.Data.clone()
	}
	return &copied
}

// NodeData is the kind-specific payload of a node. The set of
// implementations is closed: *PromptData and *UserInputData.
type NodeData interface {
	Kind() Kind
	placeholderKey(node *Node, sourceHandle string) string
	fallbackName() string
	clone() NodeData
}

// PromptData is the payload of a prompt node.
type PromptData struct {
	Prompt       string
	GoogleSearch bool
}

// Kind implements NodeData.
func (p *PromptData) Kind() Kind { return KindPrompt }

// A prompt node is referenced by its sanitized name regardless of the handle
// the edge leaves from.
func (p *PromptData) placeholderKey(node *Node, _ string) string {
	return SanitizeKey(node.Name, node.ID)
}

func (p *PromptData) fallbackName() string { return "" }

func (p *PromptData) clone() NodeData {
	copied := *p
	return &copied
}

// UserInputData is the payload of a user input node.
type UserInputData struct {
	Ticker      string
	CompanyName string
	TimeHorizon string
}

// Kind implements NodeData.
func (u *UserInputData) Kind() Kind { return KindUserInput }

// A user input node is referenced by the literal handle name.
func (u *UserInputData) placeholderKey(_ *Node, sourceHandle string) string {
	return sourceHandle
}

func (u *UserInputData) fallbackName() string { return "User Input" }

func (u *UserInputData) clone() NodeData {
	copied := *u
	return &copied
}

// Value returns the field exposed on the given source handle.
func (u *UserInputData) Value(sourceHandle string) (string, bool) {
	switch sourceHandle {
	case HandleTicker:
		return u.Ticker, true
	case HandleCompanyName:
		return u.CompanyName, true
	case HandleTimeHorizon:
		return u.TimeHorizon, true
	}
	return "", false
}

// Values returns every handle with its current value.
func (u *UserInputData) Values() map[string]string {
	return map[string]string{
		HandleTicker:      u.Ticker,
		HandleCompanyName: u.CompanyName,
		HandleTimeHorizon: u.TimeHorizon,
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeKey turns a node name into a placeholder key by replacing every
// character outside [A-Za-z0-9_] with an underscore. An empty name falls back
// to node_<id>.
func SanitizeKey(name, nodeID string) string {
	if name == "" {
		name = "node_" + nodeID
	}
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// Token wraps key in the placeholder marker.
func Token(key string) string {
	return "{{" + key + "}}"
}

// Edge connects a source handle of one node to the input handle of another.
type Edge struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}
