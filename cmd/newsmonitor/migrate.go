package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"newsmonitor/internal/config"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema.",
	}
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	}
}

func openMigrationManager(cfg *config.Config) (*persistence.PostgresDB, *persistence.MigrationManager, error) {
	logger.SetLevel(cfg.Logging.Level)

	db, err := persistence.NewPostgresDB(cfg.Database.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, persistence.NewMigrationManager(db.DB()), nil
}

func runMigrateUp(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, mgr, err := openMigrationManager(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mgr.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("migrate: schema up to date")
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, mgr, err := openMigrationManager(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := mgr.Status(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	fmt.Printf("current schema version: %d\n", version)
	return nil
}
