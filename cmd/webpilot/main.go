// Package main provides the webpilot CLI: an autonomous browser agent that
// pursues a natural-language goal through a bounded observe-decide-act loop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "webpilot",
		Short: "Autonomous browser agent",
		Long: "Webpilot drives a real browser toward a natural-language goal.\n" +
			"Each run observes the page, asks a planning model for the next\n" +
			"action, executes it, and records everything in an append-only\n" +
			"memory log.",
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the webpilot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("webpilot v%s\n", version)
		},
	}
}
