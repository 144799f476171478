package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "newsmonitor",
	Short: "Keyword monitoring and auto-ingest pipeline for news articles.",
	Long: `newsmonitor watches configured keyword groups against a search
provider, records alerts for newly matched articles, and optionally
auto-ingests them through bias enrichment, scraping, analysis, and
relevance scoring.

Run 'newsmonitor serve' to start the HTTP API, or 'newsmonitor monitor
run-once' / 'newsmonitor ingest run-once' to drive a single pass from
cron instead of the built-in scheduler.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars and defaults otherwise)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newMonitorCmd())
	rootCmd.AddCommand(newIngestCmd())
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
