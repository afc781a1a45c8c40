package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - policy evaluation and enforcement engine for fleet operations",
	Long: `Warden is a multi-tenant policy evaluation and enforcement engine for
fleet operations hubs.

It evaluates condition-tree policies against live fleet events, providing:
  - Per-policy verdicts with confidence scores
  - Violation lifecycle management (open, acknowledged, resolved)
  - Mode-based enforcement: monitor, human-in-loop, autonomous
  - Domain enforcement hooks with fail-closed escalation
  - An append-only decision ledger with compliance export`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "warden.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
