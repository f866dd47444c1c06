// Package main is the entry point for the riverlevel CLI.
//
// The exporter can be embedded as a library or run as a standalone binary
// configured from a YAML file or environment variables. This CLI provides
// the standalone binary approach.
//
// Usage:
//
//	riverlevel serve                    # Start with defaults / environment
//	riverlevel serve -c config.yaml     # Start with YAML configuration
//	riverlevel validate -c config.yaml  # Validate configuration
//	riverlevel version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "riverlevel",
	Short: "A flood-monitoring Prometheus exporter",
	Long: `riverlevel polls UK Environment Agency flood-monitoring endpoints for
river level and rainfall readings and republishes them as Prometheus
metrics, alongside a JSON health report of upstream availability.

Quick start:
  1. Run: riverlevel serve
  2. Scrape http://localhost:8897/metrics
  3. Check http://localhost:8898/health

Configuration is resolved in order: --config YAML file, then environment
variables (when CONTAINERISED=YES), then built-in defaults.`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this riverlevel binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("riverlevel %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
