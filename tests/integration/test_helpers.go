//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/levelschema"
	"github.com/tordrt/levelschema/internal/db"
	"github.com/tordrt/levelschema/internal/logging"
	"github.com/tordrt/levelschema/internal/migrations"
	"github.com/tordrt/levelschema/internal/schema"
	"github.com/tordrt/levelschema/internal/shared"
	"github.com/tordrt/levelschema/internal/store"
)

// databaseURL returns the URL in env or skips the test.
func databaseURL(t *testing.T, env string) string {
	t.Helper()
	url := os.Getenv(env)
	if url == "" {
		t.Skipf("%s not set", env)
	}
	return url
}

// freshDatabase connects to url and rolls every migration back so each test
// starts from an empty schema. The tables are dropped again on cleanup.
func freshDatabase(t *testing.T, url string) (*db.Conn, *migrations.Migrator) {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, url, db.TLSOptions{})
	require.NoError(t, err)

	m, err := migrations.NewMigrator(conn.Dialect, conn.DB, logging.Discard())
	require.NoError(t, err)
	_, err = m.Reset(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = m.Reset(context.Background())
		_ = conn.Close()
	})
	return conn, m
}

func strPtr(s string) *string { return &s }

// runCommonTablesSuite checks migrations, introspection and the data
// guarantees of levels and max_id against one live database.
func runCommonTablesSuite(t *testing.T, url string) {
	ctx := context.Background()
	conn, m := freshDatabase(t, url)

	versions, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, versions)
	require.NoError(t, m.Validate(ctx))

	t.Run("Schema", func(t *testing.T) {
		s, err := conn.Extractor("").ExtractSchema(ctx, []string{schema.LevelsTable, schema.MaxIDTable})
		require.NoError(t, err)
		require.Len(t, s.Tables, 2)

		levels := s.Table(schema.LevelsTable)
		require.NotNil(t, levels)
		assert.Equal(t, []string{"id"}, levels.PrimaryKey)

		var names []string
		for _, idx := range levels.Indexes {
			names = append(names, idx.Name)
		}
		assert.Contains(t, names, "levels__level_idx")
		assert.Contains(t, names, "levels_hash_idx")

		report := schema.Verify(s)
		assert.True(t, report.OK(), "problems: %v", report.Problems)
		assert.Len(t, report.Warnings, 1)
	})

	t.Run("VerifySchema", func(t *testing.T) {
		res, err := levelschema.VerifySchema(ctx, url, nil)
		require.NoError(t, err)
		assert.True(t, res.Report.OK(), "problems: %v", res.Report.Problems)
		assert.Equal(t, int64(1), res.MaxIDRows)
	})

	s := store.New(conn.Dialect, conn.DB, logging.Discard())

	t.Run("MaxIDSeed", func(t *testing.T) {
		v, err := s.MaxID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("Levels", func(t *testing.T) {
		first, err := s.InsertLevel(ctx, 1, strPtr("BLfirst"))
		require.NoError(t, err)
		second, err := s.InsertLevel(ctx, 2, nil)
		require.NoError(t, err)
		_, err = s.InsertLevel(ctx, 3, nil)
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)

		_, err = s.InsertLevel(ctx, 1, strPtr("BLother"))
		assert.ErrorIs(t, err, shared.ErrDuplicateLevel)

		_, err = s.InsertLevel(ctx, 4, strPtr("BLfirst"))
		assert.ErrorIs(t, err, shared.ErrDuplicateHash)

		_, err = s.InsertLevel(ctx, 5, strPtr(strings.Repeat("x", 61)))
		assert.ErrorIs(t, err, shared.ErrHashTooLong)

		query, args, err := s.Builder.Insert(schema.LevelsTable).
			Columns(schema.LevelsLevel, schema.LevelsHash).
			Values(6, strings.Repeat("y", 61)).
			ToSql()
		require.NoError(t, err)
		_, err = conn.DB.ExecContext(ctx, query, args...)
		require.Error(t, err)
		assert.ErrorIs(t, db.ClassifyError(err), shared.ErrHashTooLong)

		// Block hashes are case-sensitive base58.
		_, err = s.InsertLevel(ctx, 7, strPtr("BLcase"))
		require.NoError(t, err)
		_, err = s.InsertLevel(ctx, 8, strPtr("blcase"))
		require.NoError(t, err)

		n, err := s.CountLevels(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("Transaction", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx *store.Store) error {
			l, err := tx.InsertLevel(ctx, 100, strPtr("BLhundred"))
			if err != nil {
				return err
			}
			return tx.SetMaxID(ctx, l.ID)
		})
		require.NoError(t, err)

		l, err := s.GetLevel(ctx, 100)
		require.NoError(t, err)
		v, err := s.MaxID(ctx)
		require.NoError(t, err)
		assert.Equal(t, l.ID, v)
	})

	t.Run("SecondMaxIDRow", func(t *testing.T) {
		require.NoError(t, s.InsertMaxIDRow(ctx, 42))
		rows, err := s.MaxIDRows(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)

		res, err := levelschema.VerifySchema(ctx, url, nil)
		require.NoError(t, err)
		assert.True(t, res.Report.OK())
		assert.Equal(t, int64(2), res.MaxIDRows)
		assert.Len(t, res.Report.Warnings, 2)
	})
}
