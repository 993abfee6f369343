package migrations

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/tordrt/levelschema/internal/db"
	"github.com/tordrt/levelschema/internal/shared"
)

// VersionTable is the goose bookkeeping table.
const VersionTable = goose.DefaultTablename

// Migrator applies the embedded migrations of one dialect to a database.
type Migrator struct {
	provider *goose.Provider
	dialect  db.Dialect
	db       *sql.DB
	log      *logrus.Logger
}

// Status is the state of one migration file.
type Status struct {
	Version int64
	Path    string
	Applied bool
}

// NewMigrator creates a migrator for the given dialect. The caller keeps
// ownership of sqlDB.
func NewMigrator(dialect db.Dialect, sqlDB *sql.DB, log *logrus.Logger) (*Migrator, error) {
	gd, err := gooseDialect(dialect)
	if err != nil {
		return nil, err
	}

	sub, err := fs.Sub(FS, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(gd, sqlDB, sub,
		goose.WithLogger(log),
		goose.WithVerbose(log.IsLevelEnabled(logrus.DebugLevel)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{provider: provider, dialect: dialect, db: sqlDB, log: log}, nil
}

func gooseDialect(d db.Dialect) (goose.Dialect, error) {
	switch d {
	case db.Postgres:
		return goose.DialectPostgres, nil
	case db.SQLite:
		return goose.DialectSQLite3, nil
	case db.MySQL:
		return goose.DialectMySQL, nil
	default:
		return "", fmt.Errorf("%w: %s", shared.ErrUnsupportedDatabase, d)
	}
}

// Up applies every pending migration and returns the applied versions.
func (m *Migrator) Up(ctx context.Context) ([]int64, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	versions := make([]int64, 0, len(results))
	for _, r := range results {
		m.logResult(r)
		versions = append(versions, r.Source.Version)
	}
	if len(versions) == 0 {
		m.log.WithField("dialect", m.dialect).Info("Database already up to date")
	}
	return versions, nil
}

// Down rolls back the most recent migration. It returns version 0 and no
// error when nothing is applied.
func (m *Migrator) Down(ctx context.Context) (int64, error) {
	r, err := m.provider.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			m.log.WithField("dialect", m.dialect).Info("No migration to roll back")
			return 0, nil
		}
		return 0, fmt.Errorf("rollback failed: %w", err)
	}
	m.logResult(r)
	return r.Source.Version, nil
}

// Reset rolls back every applied migration, dropping the common tables and
// all rows in them.
func (m *Migrator) Reset(ctx context.Context) ([]int64, error) {
	results, err := m.provider.DownTo(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("reset failed: %w", err)
	}

	versions := make([]int64, 0, len(results))
	for _, r := range results {
		m.logResult(r)
		versions = append(versions, r.Source.Version)
	}
	return versions, nil
}

// Status lists every known migration with its state.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Version returns the current schema version, 0 for a fresh database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Validate returns ErrSchemaOutdated when migrations are pending.
func (m *Migrator) Validate(ctx context.Context) error {
	pending, err := m.provider.HasPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to check pending migrations: %w", err)
	}
	if pending {
		return fmt.Errorf("%w: run 'levelschema migrate up'", shared.ErrSchemaOutdated)
	}
	return nil
}

// EnsureBootstrapped migrates a fresh database. A database that already has
// the version table is left alone so outdated schemas go through an explicit
// 'migrate up'.
func (m *Migrator) EnsureBootstrapped(ctx context.Context) error {
	exists, err := tableExists(ctx, m.dialect, m.db, VersionTable)
	if err != nil {
		return fmt.Errorf("failed to check for %s: %w", VersionTable, err)
	}
	if exists {
		m.log.WithField("dialect", m.dialect).Debug("Version table found, skipping bootstrap")
		return nil
	}

	m.log.WithField("dialect", m.dialect).Info("Fresh database detected, applying migrations")
	_, err = m.Up(ctx)
	return err
}

func (m *Migrator) logResult(r *goose.MigrationResult) {
	if r == nil || r.Source == nil {
		return
	}
	m.log.WithFields(logrus.Fields{
		"dialect":   m.dialect,
		"version":   r.Source.Version,
		"direction": r.Direction,
		"duration":  r.Duration,
	}).Info("Migration applied")
}

func tableExists(ctx context.Context, dialect db.Dialect, sqlDB *sql.DB, name string) (bool, error) {
	var query string
	switch dialect {
	case db.Postgres:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	case db.MySQL:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}

	var n int
	if err := sqlDB.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpSQL returns the Up sections of every embedded migration of a dialect, in
// version order, without goose annotations.
func UpSQL(dialect db.Dialect) (string, error) {
	if _, err := gooseDialect(dialect); err != nil {
		return "", err
	}

	dir := string(dialect)
	entries, err := fs.ReadDir(FS, dir)
	if err != nil {
		return "", fmt.Errorf("failed to list migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		data, err := fs.ReadFile(FS, path.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		fmt.Fprintf(&out, "-- %s\n", name)
		out.WriteString(upSection(data))
	}
	return out.String(), nil
}

func upSection(data []byte) string {
	var b strings.Builder
	inUp := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-- +goose Up"):
			inUp = true
			continue
		case strings.HasPrefix(trimmed, "-- +goose Down"):
			inUp = false
			continue
		case strings.HasPrefix(trimmed, "-- +goose"):
			continue
		}
		if inUp {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
