// Package cli wires the engine's command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "saphouse",
		Short: "Saphouse batch engine - batch lifecycle and unit assignment",
		Long: `Saphouse runs the batch lifecycle and exclusive resource assignment
engine for the sap and herb product lines.

Examples:
  saphouse serve
  saphouse serve --config configs/config.yaml
  saphouse migrate`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ./configs and /etc/saphouse)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())

	return rootCmd
}
