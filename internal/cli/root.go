// Package cli provides the querydesk command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/querydesk/internal/config"
	"github.com/JonMunkholm/querydesk/internal/logging"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// Version information (set at build time).
var Version = "0.1.0"

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "querydesk",
		Short: "Ask questions about your uploaded datasets",
		Long: `querydesk is a client for a natural-language SQL service.

Upload CSV or Excel files as tables, inspect their schema, ask questions in
plain language and export the answers. "querydesk serve" exposes the same
workspace as a local JSON API with live change events.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newTablesCommand())
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newUploadCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// Execute runs the root command with ctx and prints any error in its
// user-facing form.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		return err
	}
	return nil
}

// errorText prefers the coded user message when err has one.
func errorText(err error) string {
	if workspace.IsUserFacing(err) {
		return workspace.Describe(err)
	}
	return err.Error()
}

// getConfig retrieves the config stored by PersistentPreRunE.
func getConfig(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return config.Load()
}
