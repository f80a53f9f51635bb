package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one SQL file from the migrations directory, identified by the
// numeric prefix of its filename (001_core.sql -> version 1).
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt time.Time
}

// MigrationStatus reports whether a known migration has been applied to a
// schema, and when.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies versioned SQL files against one tenant schema at a time.
// Applied versions are tracked in a schema_migrations table inside the target
// schema, so every tenant carries its own migration history.
type Migrator struct {
	pool *pgxpool.Pool
	dir  string
}

func NewMigrator(pool *pgxpool.Pool, migrationsDir string) *Migrator {
	return &Migrator{pool: pool, dir: migrationsDir}
}

// Schema names are interpolated into DDL, so they pass the same identifier
// check as tenant ids before any SQL is built from them.
func checkSchemaName(schema string) error {
	if !tenantIDPattern.MatchString(schema) {
		return fmt.Errorf("invalid schema name: %q", schema)
	}
	return nil
}

// LoadMigrations reads every .sql file in the directory and returns them in
// version order. Files without a numeric NNN_ prefix are skipped.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %s: %w", m.dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, found := strings.Cut(name, "_")
		if !found {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(m.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context, schema string) error {
	_, err := m.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.schema_migrations (
		    version INTEGER PRIMARY KEY,
		    name VARCHAR(255) NOT NULL,
		    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, schema))
	if err != nil {
		return fmt.Errorf("create schema_migrations in %s: %w", schema, err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context, schema string) (map[int]time.Time, error) {
	rows, err := m.pool.Query(ctx,
		fmt.Sprintf(`SELECT version, applied_at FROM %s.schema_migrations`, schema))
	if err != nil {
		return nil, fmt.Errorf("query applied versions in %s: %w", schema, err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		applied[v] = at
	}
	return applied, rows.Err()
}

// Up applies every pending migration to the schema, each in its own
// transaction, and returns how many ran.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	return m.UpTo(ctx, schema, 0)
}

// UpTo applies pending migrations up to and including targetVersion; a target
// of 0 means all of them.
func (m *Migrator) UpTo(ctx context.Context, schema string, targetVersion int) (int, error) {
	if err := checkSchemaName(schema); err != nil {
		return 0, err
	}
	if err := m.ensureVersionTable(ctx, schema); err != nil {
		return 0, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}
	applied, err := m.appliedVersions(ctx, schema)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if targetVersion > 0 && mig.Version > targetVersion {
			break
		}
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if err := m.apply(ctx, schema, mig); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// apply runs one migration and records its version, atomically.
func (m *Migrator) apply(ctx context.Context, schema string, mig Migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Unqualified DDL in the migration file lands in the tenant schema.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		mig.Version, mig.Name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit(ctx)
}

// Status lists every known migration with its applied state for the schema.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	if err := checkSchemaName(schema); err != nil {
		return nil, err
	}
	if err := m.ensureVersionTable(ctx, schema); err != nil {
		return nil, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedVersions(ctx, schema)
	if err != nil {
		return nil, err
	}

	var statuses []MigrationStatus
	for _, mig := range migrations {
		status := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			status.Applied = true
			appliedAt := at
			status.AppliedAt = &appliedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
