package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/levelschema/internal/schema"
)

// SQLiteExtractor reads table metadata through SQLite PRAGMAs.
type SQLiteExtractor struct {
	db *sql.DB
}

func NewSQLiteExtractor(db *sql.DB) *SQLiteExtractor {
	return &SQLiteExtractor{db: db}
}

// ExtractSchema extracts the given tables, or every user table when tables
// is empty.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	return extract(ctx, e, tables)
}

func (e *SQLiteExtractor) tableNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, e.db, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
}

// tableInfo is one row of PRAGMA table_info.
type tableInfo struct {
	name    string
	typ     string
	notNull bool
	def     sql.NullString
	pkOrder int
}

func (e *SQLiteExtractor) tableInfo(ctx context.Context, table string) ([]tableInfo, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tableInfo
	for rows.Next() {
		var cid int
		var ti tableInfo
		if err := rows.Scan(&cid, &ti.name, &ti.typ, &ti.notNull, &ti.def, &ti.pkOrder); err != nil {
			return nil, err
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (e *SQLiteExtractor) columns(ctx context.Context, table string) ([]schema.Column, error) {
	info, err := e.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	columns := make([]schema.Column, 0, len(info))
	for _, ti := range info {
		col := schema.Column{Name: ti.name, Type: ti.typ, Nullable: !ti.notNull}
		if ti.def.Valid {
			col.DefaultValue = &ti.def.String
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// primaryKey orders key columns by their position in the key, not in the table.
func (e *SQLiteExtractor) primaryKey(ctx context.Context, table string) ([]string, error) {
	info, err := e.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	byOrder := map[int]string{}
	for _, ti := range info {
		if ti.pkOrder > 0 {
			byOrder[ti.pkOrder] = ti.name
		}
	}
	var pk []string
	for i := 1; i <= len(byOrder); i++ {
		pk = append(pk, byOrder[i])
	}
	return pk, nil
}

func (e *SQLiteExtractor) relations(ctx context.Context, table string) ([]schema.Relation, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var onUpdate, onDelete, match string
		rel := schema.Relation{Cardinality: "N:1"}
		if err := rows.Scan(&id, &seq, &rel.TargetTable, &rel.SourceColumn, &rel.TargetColumn, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// indexes includes the automatic indexes behind inline UNIQUE constraints
// and skips the one backing the primary key.
func (e *SQLiteExtractor) indexes(ctx context.Context, table string) ([]schema.Index, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA index_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}

	var listed []schema.Index
	for rows.Next() {
		var seq int
		var partial bool
		var origin string
		var idx schema.Index
		if err := rows.Scan(&seq, &idx.Name, &idx.IsUnique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		if origin != "pk" {
			listed = append(listed, idx)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// index_info needs its own query, so the list cursor is drained first.
	indexes := listed[:0]
	for _, idx := range listed {
		cols, err := e.indexColumns(ctx, idx.Name)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", idx.Name, err)
		}
		if len(cols) == 0 {
			continue
		}
		idx.Columns = cols
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA index_info("+quoteIdent(index)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
