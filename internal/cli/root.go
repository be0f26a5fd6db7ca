package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the volition CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	envCfg, envErr := LoadEnv()

	cmd := &cobra.Command{
		Use:   "volition",
		Short: "Volition - reactive feature engine",
		Long:  "A harness and trace store for features built on the volition engine.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return fmt.Errorf("invalid environment: %w", envErr)
			}
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags, defaulted from VOLITION_* environment variables.
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", envCfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", envCfg.Format, "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewRunCommand(opts, envCfg))
	cmd.AddCommand(NewRunsCommand(opts, envCfg))
	cmd.AddCommand(NewTraceCommand(opts, envCfg))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
