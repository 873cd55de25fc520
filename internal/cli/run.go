package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/sequencer/core/editor"
	"github.com/leofalp/sequencer/core/graph"
	"github.com/leofalp/sequencer/core/protocol"
)

func newRunCommand(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a setup file through the execution service",
		Long: `Run every node of the setup file through the execution service and print
each node's output. The file itself is not modified: outputs are never
persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceClient, err := app.newClient()
			if err != nil {
				return err
			}

			graphEditor := editor.New(serviceClient, editor.WithModelID(app.modelOr(protocol.DefaultRunModel)))
			if err := graphEditor.LoadFile(args[0], graph.WithRepair()); err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}

			result, err := graphEditor.Run(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				encoder := json.NewEncoder(app.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(protocol.RunResponse{Outputs: result.Outputs, ModelUsed: result.ModelUsed})
			}
			printOutputs(app, graphEditor.Graph(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outputs as JSON")
	return cmd
}

// printOutputs prints the output of every prompt node in graph order.
func printOutputs(app *app, model *graph.Model, result *editor.RunResult) {
	fmt.Fprintf(app.stdout, "Model: %s\n", result.ModelUsed)
	for _, node := range model.Nodes() {
		if node.Kind() != graph.KindPrompt {
			continue
		}
		fmt.Fprintf(app.stdout, "\n== %s (node %s) ==\n%s\n", node.DisplayName(), node.ID, node.Output)
	}
}
