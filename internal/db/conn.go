package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn is an open connection together with its dialect.
type Conn struct {
	Dialect Dialect
	DB      *sql.DB

	// defaultSchema is what Extractor uses when no schema is named.
	defaultSchema string
}

// Open connects to the database named by url (postgres://, mysql:// or
// sqlite://). TLS options only apply to PostgreSQL.
func Open(ctx context.Context, url string, tlsOpts TLSOptions) (*Conn, error) {
	dialect, connStr, err := ParseDatabaseURL(url)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case Postgres:
		client, err := NewPostgresClient(ctx, connStr, tlsOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		var current string
		if err := client.DB().QueryRowContext(ctx, "SELECT COALESCE(current_schema(), 'public')").Scan(&current); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to read current schema: %w", err)
		}
		return &Conn{Dialect: Postgres, DB: client.DB(), defaultSchema: current}, nil
	case MySQL:
		client, err := NewMySQLClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		return &Conn{Dialect: MySQL, DB: client.DB(), defaultSchema: client.DatabaseName()}, nil
	case SQLite:
		client, err := NewSQLiteClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		return &Conn{Dialect: SQLite, DB: client.DB()}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dialect)
	}
}

// Close closes the underlying pool.
func (c *Conn) Close() error {
	return c.DB.Close()
}

// Extractor returns the schema extractor for the connection's dialect.
// schemaName defaults to the connection's current_schema() on PostgreSQL,
// where migrations create their tables, and to the DSN database on MySQL.
// SQLite ignores it.
func (c *Conn) Extractor(schemaName string) SchemaExtractor {
	if schemaName == "" {
		schemaName = c.defaultSchema
	}
	switch c.Dialect {
	case Postgres:
		return NewExtractor(c.DB, schemaName)
	case MySQL:
		return NewMySQLExtractor(c.DB, schemaName)
	default:
		return NewSQLiteExtractor(c.DB)
	}
}
