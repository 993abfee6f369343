package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLClient is a MySQL connection pool opened through a parsed DSN.
type MySQLClient struct {
	db     *sql.DB
	dbName string
}

// NewMySQLClient creates a new MySQL client. parseTime is forced on because
// the migration version table stores timestamps.
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db, dbName: cfg.DBName}, nil
}

// Close closes the pool.
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// DB returns the pool.
func (c *MySQLClient) DB() *sql.DB {
	return c.db
}

// DatabaseName returns the database named in the DSN.
func (c *MySQLClient) DatabaseName() string {
	return c.dbName
}
