package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// TLSOptions controls TLS for PostgreSQL connections.
type TLSOptions struct {
	SSL    bool
	CACert string // path to a PEM root certificate; implies verify-ca
}

// PostgresClient is a pgx-backed database/sql pool.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient applies tlsOpts to connString and opens a pool.
func NewPostgresClient(ctx context.Context, connString string, tlsOpts TLSOptions) (*PostgresClient, error) {
	connString, err := applyTLS(connString, tlsOpts)
	if err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	db := stdlib.OpenDB(*cfg)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// Close closes the pool.
func (c *PostgresClient) Close() error {
	return c.db.Close()
}

// DB returns the pool.
func (c *PostgresClient) DB() *sql.DB {
	return c.db
}

// applyTLS sets sslmode and sslrootcert on a URL or keyword/value connection
// string. Without SSL the string is returned unchanged.
func applyTLS(connString string, opts TLSOptions) (string, error) {
	if !opts.SSL {
		return connString, nil
	}

	mode := "require"
	if opts.CACert != "" {
		mode = "verify-ca"
	}

	if !strings.HasPrefix(connString, "postgres://") && !strings.HasPrefix(connString, "postgresql://") {
		s := connString + " sslmode=" + mode
		if opts.CACert != "" {
			s += " sslrootcert=" + opts.CACert
		}
		return strings.TrimSpace(s), nil
	}

	u, err := url.Parse(connString)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", mode)
	if opts.CACert != "" {
		q.Set("sslrootcert", opts.CACert)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
