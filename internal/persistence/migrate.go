package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"newsmonitor/internal/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is a single numbered, named SQL file applied at most once.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager applies embedded migrations and tracks them in
// schema_migrations, mirroring the teacher's embed.FS-based migrator.
type MigrationManager struct {
	db *sql.DB
}

func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: read migrations dir: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", e.Name(), err)
		}
		var version int
		name := e.Name()
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every migration newer than the current schema version,
// inside its own transaction each, recording progress in schema_migrations.
func (m *MigrationManager) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("migrate: ensure schema_migrations: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		var applied bool
		if err := m.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, mig.Version).Scan(&applied); err != nil {
			return fmt.Errorf("migrate: check version %d: %w", mig.Version, err)
		}
		if applied {
			continue
		}

		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate: begin tx for %s: %w", mig.Name, err)
		}
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: apply %s: %w", mig.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: record %s: %w", mig.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate: commit %s: %w", mig.Name, err)
		}
		logger.Info("migrate: applied", "version", mig.Version, "name", mig.Name)
	}
	return nil
}

// Status reports the highest applied migration version, or 0 if none.
func (m *MigrationManager) Status(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := m.db.QueryRowContext(ctx, `SELECT max(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("migrate: status: %w", err)
	}
	return int(version.Int64), nil
}
