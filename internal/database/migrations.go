package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed schema.sql
var initialSchema string

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending migrations
	Migrate(ctx context.Context) error

	// CurrentVersion returns the current schema version
	CurrentVersion(ctx context.Context) (int, error)
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      string
}

// migrator implements the Migrator interface.
type migrator struct {
	db         *DB
	migrations []migration
}

// NewMigrator creates a new database migrator.
func NewMigrator(db *DB) Migrator {
	return &migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

// getMigrations returns all available migrations in order.
func getMigrations() []migration {
	migrations := []migration{
		{
			version: 1,
			name:    "initial_schema",
			up:      initialSchema,
		},
		// Future migrations will be added here
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations
}

// Migrate applies all pending migrations.
func (m *migrator) Migrate(ctx context.Context) error {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, mig := range m.migrations {
		if mig.version <= currentVersion {
			continue
		}

		if err := m.applyMigration(ctx, mig); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", mig.version, mig.name, err)
		}
	}

	return nil
}

// CurrentVersion returns the current schema version.
func (m *migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	var version int
	query := "SELECT COALESCE(MAX(version), 0) FROM migrations"
	if err := m.db.conn.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to query current version: %w", err)
	}

	return version, nil
}

// ensureMigrationsTable creates the migrations table if it doesn't exist.
func (m *migrator) ensureMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := m.db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return nil
}

// applyMigration applies a single migration within a transaction.
func (m *migrator) applyMigration(ctx context.Context, mig migration) error {
	return m.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range splitSQL(mig.up) {
			stmt = strings.TrimSpace(removeComments(stmt))
			if stmt == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
			}
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO migrations (version, name, applied_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
			mig.version, mig.name)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}

		return nil
	})
}

// splitSQL splits a migration script into individual statements.
func splitSQL(script string) []string {
	return strings.Split(script, ";")
}

// removeComments strips "--" comment lines from a statement.
func removeComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
