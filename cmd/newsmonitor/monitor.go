package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"newsmonitor/internal/config"
	"newsmonitor/internal/logger"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Drive the keyword monitor outside the built-in scheduler.",
	}
	cmd.AddCommand(newMonitorRunOnceCmd())
	return cmd
}

func newMonitorRunOnceCmd() *cobra.Command {
	var groupID int64
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single tick over one keyword group, or every group if --group-id is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitorOnce(cmd.Context(), groupID)
		},
	}
	cmd.Flags().Int64Var(&groupID, "group-id", 0, "keyword group to check (0 checks every group)")
	return cmd
}

func runMonitorOnce(ctx context.Context, groupID int64) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wire dependencies: %w", err)
	}
	defer d.Close()

	groupIDs := []int64{groupID}
	if groupID == 0 {
		groups, err := d.db.KeywordGroups().List(ctx)
		if err != nil {
			return fmt.Errorf("list keyword groups: %w", err)
		}
		groupIDs = make([]int64, len(groups))
		for i, g := range groups {
			groupIDs[i] = g.ID
		}
	}

	for _, id := range groupIDs {
		result, err := d.monitor.Tick(ctx, id)
		if err != nil {
			logger.Error("monitor: tick failed", err, "group_id", id)
			continue
		}
		logger.Info("monitor: tick complete",
			"group_id", id,
			"keywords_checked", result.KeywordsChecked,
			"articles_found", result.ArticlesFound,
			"alerts_inserted", result.AlertsInserted,
			"aborted", result.Aborted,
		)
	}

	return nil
}
