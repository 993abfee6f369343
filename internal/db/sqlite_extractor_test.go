package db_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/levelschema/internal/db"
	"github.com/tordrt/levelschema/internal/logging"
	"github.com/tordrt/levelschema/internal/migrations"
	"github.com/tordrt/levelschema/internal/schema"
	"github.com/tordrt/levelschema/internal/shared"
)

func openMigrated(t *testing.T) *db.Conn {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "levels.db"), db.TLSOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := migrations.NewMigrator(conn.Dialect, conn.DB, logging.Discard())
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)
	return conn
}

func TestSQLiteExtractCommonTables(t *testing.T) {
	conn := openMigrated(t)

	s, err := conn.Extractor("").ExtractSchema(context.Background(), []string{schema.LevelsTable, schema.MaxIDTable})
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)

	levels := s.Table(schema.LevelsTable)
	require.NotNil(t, levels)
	assert.Equal(t, []string{"id"}, levels.PrimaryKey)

	level := levels.Column("_level")
	require.NotNil(t, level)
	assert.False(t, level.Nullable)
	assert.True(t, level.IsUnique)

	hash := levels.Column("hash")
	require.NotNil(t, hash)
	assert.True(t, hash.Nullable)
	assert.True(t, hash.IsUnique)
	n, ok := schema.ColumnLength(hash.Type)
	assert.True(t, ok)
	assert.Equal(t, 60, n)

	var names []string
	for _, idx := range levels.Indexes {
		names = append(names, idx.Name)
		assert.True(t, idx.IsUnique, idx.Name)
	}
	assert.Equal(t, []string{"levels__level_idx", "levels_hash_idx"}, names)
	assert.Empty(t, levels.Relations)

	maxID := s.Table(schema.MaxIDTable)
	require.NotNil(t, maxID)
	assert.Empty(t, maxID.PrimaryKey)
	assert.Empty(t, maxID.Indexes)

	report := schema.Verify(s)
	assert.True(t, report.OK(), "problems: %v", report.Problems)
	assert.Len(t, report.Warnings, 1)
}

func TestSQLiteExtractSkipsMissingTables(t *testing.T) {
	conn := openMigrated(t)

	s, err := conn.Extractor("").ExtractSchema(context.Background(), []string{"levels", "blocks"})
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "levels", s.Tables[0].Name)

	report := schema.Verify(s)
	assert.False(t, report.OK())
	assert.Contains(t, report.Problems, "table max_id is missing")
}

func TestSQLiteExtractAllTables(t *testing.T) {
	conn := openMigrated(t)

	s, err := conn.Extractor("").ExtractSchema(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tbl := range s.Tables {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{migrations.VersionTable, "levels", "max_id"}, names)
}

func TestClassifySQLiteConstraintErrors(t *testing.T) {
	conn := openMigrated(t)
	ctx := context.Background()

	_, err := conn.DB.ExecContext(ctx, "INSERT INTO levels (_level, hash) VALUES (1, 'BLa')")
	require.NoError(t, err)

	_, err = conn.DB.ExecContext(ctx, "INSERT INTO levels (_level, hash) VALUES (1, 'BLb')")
	assert.ErrorIs(t, db.ClassifyError(err), shared.ErrDuplicateLevel)

	_, err = conn.DB.ExecContext(ctx, "INSERT INTO levels (_level, hash) VALUES (2, 'BLa')")
	assert.ErrorIs(t, db.ClassifyError(err), shared.ErrDuplicateHash)

	_, err = conn.DB.ExecContext(ctx, "INSERT INTO levels (_level, hash) VALUES (3, ?)", strings.Repeat("x", 61))
	assert.ErrorIs(t, db.ClassifyError(err), shared.ErrHashTooLong)
}

func TestOpenRejectsUnknownURL(t *testing.T) {
	_, err := db.Open(context.Background(), "redis://localhost", db.TLSOptions{})
	assert.ErrorIs(t, err, shared.ErrInvalidDatabaseURL)
}
