package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/sequencer/internal/config"
)

func newConfigCommand(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(app), newConfigPathCommand(app))
	return cmd
}

func newConfigInitCommand(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: `Write the configuration currently in effect (defaults, config file,
.env, environment and global flags) to the config file. API keys are
never written; keep them in GEMINI_API_KEY or a .env file.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			path := app.configFile()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := *app.cfg
			cfg.Gemini.APIKey = ""
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigPathCommand(app *app) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the config file location",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintln(app.stdout, app.configFile())
			return nil
		},
	}
}

// configFile returns the --config path, or the default location.
func (a *app) configFile() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}
