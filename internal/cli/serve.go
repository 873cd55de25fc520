package cli

import (
	"github.com/spf13/cobra"

	"github.com/leofalp/sequencer/internal/server"
	"github.com/leofalp/sequencer/patterns/sequence"
	"github.com/leofalp/sequencer/providers/ai"
	"github.com/leofalp/sequencer/providers/ai/gemini"
)

func newServeCommand(app *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the execution service",
		Long: `Start the HTTP execution service that runs prompt graphs and streams
chat replies through Gemini. The API key is read from GEMINI_API_KEY
(or GOOGLE_API_KEY).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = app.cfg.Server.ListenAddr
			}
			return newServer(app).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8000)")
	return cmd
}

// newServer wires the Gemini provider into the executor and the HTTP server.
func newServer(app *app) *server.Server {
	provider := newGeminiProvider(app)

	executor := sequence.NewExecutor(provider,
		sequence.WithMaxConcurrency(app.cfg.Server.MaxConcurrency),
		sequence.WithNodeTimeout(app.cfg.Server.NodeTimeout),
		sequence.WithObserver(app.observer),
	)

	opts := []server.Option{server.WithObserver(app.observer)}
	if len(app.cfg.Server.AllowedOrigins) > 0 {
		opts = append(opts, server.WithAllowedOrigins(app.cfg.Server.AllowedOrigins...))
	}
	return server.New(executor, provider, opts...)
}

func newGeminiProvider(app *app) ai.StreamProvider {
	provider := gemini.New()
	if app.cfg.Gemini.APIKey != "" {
		provider.WithAPIKey(app.cfg.Gemini.APIKey)
	}
	if app.cfg.Gemini.BaseURL != "" {
		provider.WithBaseURL(app.cfg.Gemini.BaseURL)
	}
	return provider
}
