package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tordrt/levelschema/internal/schema"
)

// SchemaExtractor reads table metadata from a live database.
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

// catalog answers the per-table metadata queries of one dialect.
type catalog interface {
	tableNames(ctx context.Context) ([]string, error)
	columns(ctx context.Context, table string) ([]schema.Column, error)
	primaryKey(ctx context.Context, table string) ([]string, error)
	relations(ctx context.Context, table string) ([]schema.Relation, error)
	indexes(ctx context.Context, table string) ([]schema.Index, error)
}

// extract reads every table of c, or only the requested ones in the order
// given. Requested tables that do not exist are skipped so callers can report
// them as missing.
func extract(ctx context.Context, c catalog, requested []string) (*schema.Schema, error) {
	names, err := c.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	if len(requested) > 0 {
		var keep []string
		for _, name := range requested {
			if slices.Contains(names, name) {
				keep = append(keep, name)
			}
		}
		names = keep
	}

	s := &schema.Schema{}
	for _, name := range names {
		table, err := extractTable(ctx, c, name)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", name, err)
		}
		s.Tables = append(s.Tables, *table)
	}
	return s, nil
}

func extractTable(ctx context.Context, c catalog, name string) (*schema.Table, error) {
	var (
		table = &schema.Table{Name: name}
		err   error
	)

	if table.Columns, err = c.columns(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if table.PrimaryKey, err = c.primaryKey(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	if table.Relations, err = c.relations(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	if table.Indexes, err = c.indexes(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}

	sort.Slice(table.Indexes, func(i, j int) bool { return table.Indexes[i].Name < table.Indexes[j].Name })
	markUniqueColumns(table)
	return table, nil
}

// markUniqueColumns flags every column covered on its own by a unique index.
// Unique constraints are backed by such an index on every supported database.
func markUniqueColumns(t *schema.Table) {
	for _, idx := range t.Indexes {
		if !idx.IsUnique || len(idx.Columns) != 1 {
			continue
		}
		if col := t.Column(idx.Columns[0]); col != nil {
			col.IsUnique = true
		}
	}
}

// queryStrings runs a query returning a single text column.
func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// scanColumns reads rows of (name, type, is_nullable, default) as reported by
// information_schema.columns.
func scanColumns(rows *sql.Rows) ([]schema.Column, error) {
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &def); err != nil {
			return nil, err
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		if def.Valid {
			col.DefaultValue = &def.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// scanRelations reads rows of (column, referenced table, referenced column).
func scanRelations(rows *sql.Rows) ([]schema.Relation, error) {
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		rel := schema.Relation{Cardinality: "N:1"}
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// scanIndexes reads rows of (name, unique, comma-separated columns).
func scanIndexes(rows *sql.Rows) ([]schema.Index, error) {
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var cols string
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &cols); err != nil {
			return nil, err
		}
		idx.Columns = strings.Split(cols, ",")
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}
