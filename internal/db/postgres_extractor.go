package db

import (
	"context"
	"database/sql"

	"github.com/tordrt/levelschema/internal/schema"
)

// Extractor reads table metadata from one PostgreSQL schema.
type Extractor struct {
	db     *sql.DB
	schema string
}

// NewExtractor creates a PostgreSQL extractor for schemaName.
func NewExtractor(db *sql.DB, schemaName string) *Extractor {
	return &Extractor{db: db, schema: schemaName}
}

// ExtractSchema extracts the given tables, or every base table of the schema
// when tables is empty.
func (e *Extractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extract(ctx, e, tables)
}

func (e *Extractor) tableNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, e.db, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, e.schema)
}

// columns reports character types with their length, e.g.
// "character varying(60)".
func (e *Extractor) columns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT
			column_name,
			CASE WHEN character_maximum_length IS NOT NULL
				THEN data_type || '(' || character_maximum_length || ')'
				ELSE data_type
			END,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, e.schema, table)
	if err != nil {
		return nil, err
	}
	return scanColumns(rows)
}

func (e *Extractor) primaryKey(ctx context.Context, table string) ([]string, error) {
	return queryStrings(ctx, e.db, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
			AND kcu.table_name = tc.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`, e.schema, table)
}

func (e *Extractor) relations(ctx context.Context, table string) ([]schema.Relation, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, e.schema, table)
	if err != nil {
		return nil, err
	}
	return scanRelations(rows)
}

// indexes aggregates index columns with string_agg; pgx array scanning is not
// available through database/sql.
func (e *Extractor) indexes(ctx context.Context, table string) ([]schema.Index, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT
			i.relname,
			ix.indisunique,
			string_agg(a.attname, ',' ORDER BY array_position(ix.indkey, a.attnum))
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique`, e.schema, table)
	if err != nil {
		return nil, err
	}
	return scanIndexes(rows)
}
