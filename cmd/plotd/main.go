// Package main provides the plotd binary: the plot configuration editor
// server and a configuration checker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "plotd"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Plot configuration editor",
		Long: `plotd resolves partially specified plot configurations against a
dataset catalog. It serves the editor over HTTP and WebSocket and can check
stored configurations for completeness.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), checkCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}
