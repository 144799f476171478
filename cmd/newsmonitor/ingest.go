package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsmonitor/internal/config"
	"newsmonitor/internal/core"
	"newsmonitor/internal/ingest"
	"newsmonitor/internal/logger"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Drive the auto-ingest pipeline outside the HTTP API.",
	}
	cmd.AddCommand(newIngestRunOnceCmd())
	return cmd
}

func newIngestRunOnceCmd() *cobra.Command {
	var topic, keywordsCSV string
	var limit int
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single auto-ingest pass over pending articles.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var keywords []string
			if keywordsCSV != "" {
				keywords = strings.Split(keywordsCSV, ",")
			}
			return runIngestOnce(cmd.Context(), topic, keywords, limit)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic to score relevance against")
	cmd.Flags().StringVar(&keywordsCSV, "keywords", "", "comma-separated keywords to score relevance against")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of pending articles to process")
	return cmd
}

func runIngestOnce(ctx context.Context, topic string, keywords []string, limit int) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wire dependencies: %w", err)
	}
	defer d.Close()

	settings, err := d.db.Settings().GetMonitorSettings(ctx)
	if err != nil {
		return fmt.Errorf("load monitor settings: %w", err)
	}

	summary, err := d.ingest.Run(ctx, topic, keywords, ingestConfigFromSettings(settings), limit)
	if err != nil {
		return fmt.Errorf("run ingest: %w", err)
	}

	logger.Info("ingest: run complete",
		"processed", summary.Processed,
		"ingested", summary.Ingested,
		"rejected_relevance", summary.RejectedRelevance,
		"rejected_quality", summary.RejectedQuality,
		"errors", summary.Errors,
	)
	return nil
}

func ingestConfigFromSettings(settings *core.KeywordMonitorSettings) ingest.Config {
	return ingest.Config{
		BatchSize:             settings.BatchSize,
		MaxConcurrentBatches:  settings.MaxConcurrentBatches,
		MinRelevanceThreshold: settings.MinRelevanceThreshold,
		QualityControlEnabled: settings.QualityControlEnabled,
		AutoSaveApprovedOnly:  settings.AutoSaveApprovedOnly,
		DefaultLLMModel:       settings.DefaultLLMModel,
	}
}
