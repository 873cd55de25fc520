package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/leofalp/sequencer/core/editor"
	"github.com/leofalp/sequencer/core/graph"
)

func newGraphCommand(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Edit a setup file (load, change, save)",
		Long: `Edit a prompt graph setup file. Every subcommand loads FILE, applies one
change and writes it back. Hand-edited files with small JSON mistakes are
repaired on load.`,
	}

	cmd.AddCommand(
		newGraphNewCommand(app),
		newGraphAddPromptCommand(app),
		newGraphAddInputCommand(app),
		newGraphConnectCommand(app),
		newGraphDisconnectCommand(app),
		newGraphRemoveCommand(app),
		newGraphSetCommand(app),
		newGraphMoveCommand(app),
		newGraphInputsCommand(app),
		newGraphInsertCommand(app),
		newGraphShowCommand(app),
	)
	return cmd
}

// loadEditor opens path for editing.
func loadEditor(path string) (*editor.Editor, error) {
	graphEditor := editor.New(nil)
	if err := graphEditor.LoadFile(path, graph.WithRepair()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return graphEditor, nil
}

// editFile loads path, applies mutate and saves the result.
func editFile(path string, mutate func(model *graph.Model) error) error {
	graphEditor, err := loadEditor(path)
	if err != nil {
		return err
	}
	if err := mutate(graphEditor.Graph()); err != nil {
		return err
	}
	return graphEditor.SaveFile(path)
}

func newGraphNewCommand(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new FILE",
		Short: "Create an empty setup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := editor.New(nil).SaveFile(path); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

type positionFlags struct {
	x, y float64
}

func (p *positionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&p.x, "x", 0, "Canvas x position")
	cmd.Flags().Float64Var(&p.y, "y", 0, "Canvas y position")
}

func (p *positionFlags) position() graph.Position {
	return graph.Position{X: p.x, Y: p.y}
}

func newGraphAddPromptCommand(app *app) *cobra.Command {
	var (
		name         string
		prompt       string
		googleSearch bool
		position     positionFlags
	)

	cmd := &cobra.Command{
		Use:   "add-prompt FILE",
		Short: "Add a prompt node and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(args[0], func(model *graph.Model) error {
				node, err := model.AddNode(graph.KindPrompt, graph.NodeInit{
					Name:     name,
					Position: position.position(),
					Data:     &graph.PromptData{Prompt: prompt, GoogleSearch: googleSearch},
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, node.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Node name, used as its placeholder key")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt text with {{key}} placeholders")
	cmd.Flags().BoolVar(&googleSearch, "google-search", false, "Ground the prompt with Google Search")
	position.register(cmd)
	return cmd
}

func newGraphAddInputCommand(app *app) *cobra.Command {
	var (
		name     string
		input    graph.UserInputData
		position positionFlags
	)

	cmd := &cobra.Command{
		Use:   "add-input FILE",
		Short: "Add a user input node and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(args[0], func(model *graph.Model) error {
				data := input
				node, err := model.AddNode(graph.KindUserInput, graph.NodeInit{
					Name:     name,
					Position: position.position(),
					Data:     &data,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, node.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Node name")
	cmd.Flags().StringVar(&input.Ticker, "ticker", "", "Ticker symbol")
	cmd.Flags().StringVar(&input.CompanyName, "company-name", "", "Company name")
	cmd.Flags().StringVar(&input.TimeHorizon, "time-horizon", "", "Time horizon")
	position.register(cmd)
	return cmd
}

// sourceHandle picks the handle an edge leaves source from: the output handle
// of a prompt node, or one of the user input fields.
func sourceHandle(model *graph.Model, sourceID, handle string) (string, error) {
	source, ok := model.Node(sourceID)
	if !ok {
		return "", fmt.Errorf("%w: %s", graph.ErrNodeNotFound, sourceID)
	}
	if source.Kind() == graph.KindPrompt {
		if handle != "" && handle != graph.OutputHandle {
			return "", fmt.Errorf("prompt node %s only has the %q handle", sourceID, graph.OutputHandle)
		}
		return graph.OutputHandle, nil
	}
	if !slices.Contains(graph.UserInputHandles, handle) {
		return "", fmt.Errorf("user input node %s needs --handle, one of %v", sourceID, graph.UserInputHandles)
	}
	return handle, nil
}

func newGraphConnectCommand(app *app) *cobra.Command {
	var handle string

	cmd := &cobra.Command{
		Use:   "connect FILE SOURCE TARGET",
		Short: "Connect a node to the input of a prompt node",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(args[0], func(model *graph.Model) error {
				sourceID, targetID := args[1], args[2]
				if _, ok := model.Node(targetID); !ok {
					return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, targetID)
				}
				resolved, err := sourceHandle(model, sourceID, handle)
				if err != nil {
					return err
				}
				model.AddEdge(sourceID, resolved, targetID)

				source, _ := model.Node(sourceID)
				fmt.Fprintln(app.stdout, source.PlaceholderToken(resolved))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "", "Source handle of a user input node (ticker, company_name, time_horizon)")
	return cmd
}

func newGraphDisconnectCommand(app *app) *cobra.Command {
	var handle string

	cmd := &cobra.Command{
		Use:   "disconnect FILE SOURCE TARGET",
		Short: "Remove the edges from SOURCE into TARGET",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(args[0], func(model *graph.Model) error {
				sourceID, targetID := args[1], args[2]
				resolved := handle
				if resolved == "" {
					resolved = graph.OutputHandle
				}
				removed := model.RemoveEdge(sourceID, resolved, targetID)
				if removed == 0 {
					return fmt.Errorf("no edge %s[%s] -> %s", sourceID, resolved, targetID)
				}
				fmt.Fprintf(app.stdout, "Removed %d edge(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "", "Source handle (default output)")
	return cmd
}

func newGraphRemoveCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove FILE ID",
		Short: "Remove a node and every edge touching it",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return editFile(args[0], func(model *graph.Model) error {
				if err := model.RemoveNode(args[1]); err != nil {
					return err
				}
				fmt.Fprintf(app.stdout, "Removed node %s\n", args[1])
				return nil
			})
		},
	}
}

func newGraphSetCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set FILE ID FIELD VALUE",
		Short: "Set a node field (name, prompt, googleSearch, ticker, company_name, time_horizon)",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			field := graph.Field(args[2])
			value, err := graph.ParseFieldValue(field, args[3])
			if err != nil {
				return err
			}
			return editFile(args[0], func(model *graph.Model) error {
				return model.SetNodeField(args[1], field, value)
			})
		},
	}
}

func newGraphMoveCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move FILE ID X Y",
		Short: "Move a node on the canvas",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid x %q: %w", args[2], err)
			}
			y, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid y %q: %w", args[3], err)
			}
			return editFile(args[0], func(model *graph.Model) error {
				return model.MoveNode(args[1], graph.Position{X: x, Y: y})
			})
		},
	}
}

func newGraphInputsCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inputs FILE ID",
		Short: "List the placeholders connected to a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			graphEditor, err := loadEditor(args[0])
			if err != nil {
				return err
			}
			if _, ok := graphEditor.Graph().Node(args[1]); !ok {
				return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, args[1])
			}

			inputs := graphEditor.ConnectedInputs(args[1])
			if len(inputs) == 0 {
				fmt.Fprintln(app.stdout, "No connected inputs")
				return nil
			}
			writer := tabwriter.NewWriter(app.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "TOKEN\tSOURCE\tNODE")
			for _, input := range inputs {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", input.Token, input.SourceName, input.SourceID)
			}
			return writer.Flush()
		},
	}
}

func newGraphInsertCommand(app *app) *cobra.Command {
	var cursor int

	cmd := &cobra.Command{
		Use:   "insert FILE ID TOKEN",
		Short: "Insert a placeholder token into a prompt at --cursor (default end)",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			nodeID, token := args[1], args[2]
			return editFile(args[0], func(model *graph.Model) error {
				node, ok := model.Node(nodeID)
				if !ok {
					return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, nodeID)
				}
				data, isPrompt := node.Data.(*graph.PromptData)
				if !isPrompt {
					return fmt.Errorf("%w: node %s has no prompt", graph.ErrFieldNotApplicable, nodeID)
				}

				at := cursor
				if at < 0 {
					at = utf8.RuneCountInString(data.Prompt)
				}
				text, next := graph.InsertPlaceholder(data.Prompt, at, token)
				if err := model.SetNodeField(nodeID, graph.FieldPrompt, text); err != nil {
					return err
				}
				fmt.Fprintf(app.stdout, "cursor %d\n", next)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&cursor, "cursor", -1, "Character offset to insert at")
	return cmd
}

func newGraphShowCommand(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the nodes and edges of a setup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			graphEditor, err := loadEditor(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := graph.MarshalIndent(graphEditor.Graph())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(app.stdout, string(data))
				return err
			}
			return printGraph(app.stdout, graphEditor.Graph())
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the persisted document")
	return cmd
}

func printGraph(out io.Writer, model *graph.Model) error {
	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tKIND\tNAME\tDETAILS")
	for _, node := range model.Nodes() {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", node.ID, node.Kind(), node.DisplayName(), nodeDetails(node))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	edges := model.Edges()
	if len(edges) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	for _, edge := range edges {
		fmt.Fprintf(out, "%s[%s] -> %s\n", edge.Source, edge.SourceHandle, edge.Target)
	}
	return nil
}

func nodeDetails(node *graph.Node) string {
	switch data := node.Data.(type) {
	case *graph.PromptData:
		details := strconv.Quote(truncate(data.Prompt, 60))
		if data.GoogleSearch {
			details += " +search"
		}
		return details
	case *graph.UserInputData:
		encoded, err := json.Marshal(data.Values())
		if err != nil {
			return ""
		}
		return string(encoded)
	}
	return ""
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
