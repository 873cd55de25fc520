// Package graph holds the editable prompt graph: nodes, edges, id allocation,
// placeholder resolution and the persisted document format.
//
// A graph has two node kinds. A prompt node carries prompt text that is sent
// to the language model at run time; a user input node carries typed values
// (ticker, company name, time horizon), each exposed on its own source handle.
// Every edge ends on the single "input" handle of its target, and a prompt
// references its upstream values through {{key}} placeholder tokens:
//
//   - from a prompt node, the key is the node name with every character outside
//     [A-Za-z0-9_] replaced by "_" (or node_<id> when the name is empty)
//   - from a user input node, the key is the source handle itself
//
// Tokens are not required to be unique. Two inputs resolving to the same key
// are both listed by [ResolveConnectedInputs]; at substitution time the last
// binding wins (see [Substitute]).
//
// The main entry points are [NewModel], [ResolveConnectedInputs],
// [InsertPlaceholder], [Save] and [Load] / [LoadBytes].
//
// Example:
//
//	model := graph.NewModel()
//	input, _ := model.AddNode(graph.KindUserInput, graph.NodeInit{})
//	summary, _ := model.AddNode(graph.KindPrompt, graph.NodeInit{Name: "Summary"})
//	model.AddEdge(input.ID, graph.HandleTicker, summary.ID)
//
//	for _, connected := range graph.ResolveConnectedInputs(model, summary.ID) {
//	    fmt.Println(connected.SourceName, connected.Token) // User Input {{ticker}}
//	}
package graph
