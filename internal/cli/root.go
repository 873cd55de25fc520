package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leofalp/sequencer/core/client"
	"github.com/leofalp/sequencer/core/client/middleware"
	"github.com/leofalp/sequencer/core/protocol"
	"github.com/leofalp/sequencer/internal/config"
	"github.com/leofalp/sequencer/providers/observability/slogobs"
)

// annotationConfigOptional marks commands that run without an existing
// --config file.
const annotationConfigOptional = "config-optional"

// app carries the global flags and the state built from them before any
// subcommand runs.
type app struct {
	configPath string
	logLevel   string
	serverURL  string
	model      string

	cfg      *config.Config
	observer *slogobs.Observer

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the sequencer command tree.
func NewRootCommand() *cobra.Command {
	app := &app{}

	root := &cobra.Command{
		Use:   "sequencer",
		Short: "Compose prompt graphs and run them against a language model",
		Long: `sequencer edits prompt graph setup files, runs them through the
execution service and holds streaming chat sessions with the model.

Commands:
  sequencer serve            Start the execution service
  sequencer graph ...        Edit a setup file
  sequencer run FILE         Run a setup file and print every node's output
  sequencer chat             Interactive streaming chat
  sequencer config init      Write the config file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "",
		"Config file (default ~/.sequencer/config.yaml)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&app.serverURL, "server", "",
		"Execution service URL, e.g. http://localhost:8000")
	root.PersistentFlags().StringVar(&app.model, "model", "",
		fmt.Sprintf("Model id, one of %v", protocol.Models()))

	root.AddCommand(
		newServeCommand(app),
		newGraphCommand(app),
		newRunCommand(app),
		newChatCommand(app),
		newConfigCommand(app),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.stdin = cmd.InOrStdin()
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()

	var opts []config.LoadOption
	if cmd.Annotations[annotationConfigOptional] == "true" {
		opts = append(opts, config.WithOptionalFile())
	}
	cfg, err := config.Load(a.configPath, opts...)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.Client.ServerURL = a.serverURL
	}
	if a.model != "" {
		model, err := protocol.ParseModel(a.model)
		if err != nil {
			return err
		}
		cfg.Client.Model = model
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.observer = slogobs.New(
		slogobs.WithLevel(slogobs.ParseLogLevel(cfg.Logging.Level)),
		slogobs.WithFormat(slogobs.ParseFormat(cfg.Logging.Format)),
		slogobs.WithOutput(a.stderr),
	)
	return nil
}

// modelOr returns the configured model, or fallback when none was chosen.
func (a *app) modelOr(fallback string) string {
	if a.cfg.Client.Model != "" {
		return a.cfg.Client.Model
	}
	return fallback
}

// newClient builds the service client with logging and, when configured, a
// request timeout.
func (a *app) newClient() (*client.Client, error) {
	middlewares := []client.MiddlewareConfig{
		middleware.NewLoggingMiddleware(a.logger(), middleware.LogLevelStandard),
	}
	if a.cfg.Client.Timeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(a.cfg.Client.Timeout))
	}
	return client.New(a.cfg.Client.ServerURL,
		client.WithObserver(a.observer),
		client.WithMiddleware(middlewares...),
	)
}

func (a *app) logger() *slog.Logger {
	return a.observer.Logger()
}
