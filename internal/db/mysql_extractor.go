package db

import (
	"context"
	"database/sql"

	"github.com/tordrt/levelschema/internal/schema"
)

// MySQLExtractor reads table metadata from one MySQL database.
type MySQLExtractor struct {
	db         *sql.DB
	schemaName string
}

// NewMySQLExtractor creates a MySQL extractor for the database schemaName.
func NewMySQLExtractor(db *sql.DB, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{db: db, schemaName: schemaName}
}

// ExtractSchema extracts the given tables, or every base table of the
// database when tables is empty.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extract(ctx, e, tables)
}

func (e *MySQLExtractor) tableNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, e.db, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name`, e.schemaName)
}

// columns uses column_type, which already carries the length, e.g.
// "varchar(60)".
func (e *MySQLExtractor) columns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, e.schemaName, table)
	if err != nil {
		return nil, err
	}
	return scanColumns(rows)
}

func (e *MySQLExtractor) primaryKey(ctx context.Context, table string) ([]string, error) {
	return queryStrings(ctx, e.db, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, e.schemaName, table)
}

func (e *MySQLExtractor) relations(ctx context.Context, table string) ([]schema.Relation, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND referenced_table_name IS NOT NULL
		ORDER BY ordinal_position`, e.schemaName, table)
	if err != nil {
		return nil, err
	}
	return scanRelations(rows)
}

func (e *MySQLExtractor) indexes(ctx context.Context, table string) ([]schema.Index, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT index_name, non_unique = 0, GROUP_CONCAT(column_name ORDER BY seq_in_index)
		FROM information_schema.statistics
		WHERE table_schema = ?
			AND table_name = ?
			AND index_name != 'PRIMARY'
		GROUP BY index_name, non_unique`, e.schemaName, table)
	if err != nil {
		return nil, err
	}
	return scanIndexes(rows)
}
