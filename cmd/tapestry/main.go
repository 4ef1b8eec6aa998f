// Package main provides the tapestry CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tapestry",
	Short: "Collaborative concept-graph server",
	Long: `tapestry is a multi-user collaborative concept mapping server.

Core features:
  - Shared concept graphs with realtime sync over WebSocket
  - AI-assisted concept harvesting, expansion, and merging
  - Room-based sessions with presence and activity feeds
  - SVG export of room graphs

State is stored in a single SQLite database. Commands output JSON by
default for scripting; pass --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
