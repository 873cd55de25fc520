// Package sequence executes prompt graphs on the server side.
//
// An [Executor] converts the persisted nodes, orders them into topological
// levels with Kahn's algorithm and walks the levels in order. Within a level
// independent prompt nodes generate concurrently through an [ai.Provider];
// user input nodes only supply values to their downstream prompts. Each
// prompt's {{key}} placeholders are replaced with the values of its incoming
// edges before the model call.
//
// Example:
//
//	executor := sequence.NewExecutor(gemini.New(), sequence.WithMaxConcurrency(4))
//	result, err := executor.Run(ctx, request.Nodes, request.Edges, request.Model)
//	if err != nil {
//	    var nodeErr *sequence.NodeError
//	    if errors.As(err, &nodeErr) && errors.Is(err, ai.ErrRateLimited) { ... }
//	}
//	fmt.Println(result.Outputs["2"])
package sequence
