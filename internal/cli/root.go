// Package cli implements the formline command line: one-shot validation of a
// JSON model against a YAML rule set, and path inspection helpers.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "formline",
	Short:         "Validate JSON models against declarative rule sets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(pathsCmd)
}
