package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"floodwatch/riverlevel/config"
)

// validateCmd validates configuration without starting the exporter.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate riverlevel configuration without starting the exporter.

This command parses the YAML (or resolves environment variables when no
file is given), expands environment references, and validates all fields.
Every violation is reported, not just the first. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  riverlevel validate -c config.yaml
  CONTAINERISED=YES RIVER_MEASURE_API=... riverlevel validate`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Metrics port:   %d\n", cfg.MetricsPort)
	fmt.Printf("  Health port:    %d\n", cfg.HealthPort)
	fmt.Printf("  Poll interval:  %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  River measure:  %s\n", config.SanitizeURL(cfg.RiverMeasureURL))
	fmt.Printf("  River station:  %s\n", config.SanitizeURL(cfg.RiverStationURL))
	fmt.Printf("  Rain measure:   %s\n", config.SanitizeURL(cfg.RainMeasureURL))
	fmt.Printf("  Rain station:   %s\n", config.SanitizeURL(cfg.RainStationURL))

	for _, w := range cfg.Warnings() {
		fmt.Printf("  Warning: %s\n", w)
	}

	return nil
}
