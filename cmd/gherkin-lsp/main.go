package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootFlag string

var rootCmd = &cobra.Command{
	Use:          "gherkin-lsp",
	Short:        "Language server for Gherkin feature files and their step definitions",
	SilenceUsage: true,
	// no subcommand means an editor started us
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (defaults to the editor workspace, or the current directory)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// projectRoot returns --root or the current directory
func projectRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	return os.Getwd()
}
