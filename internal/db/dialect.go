package db

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/tordrt/levelschema/internal/shared"
)

// Dialect names a supported SQL database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
)

// Dialects lists every supported dialect in a stable order.
var Dialects = []Dialect{Postgres, SQLite, MySQL}

func (d Dialect) String() string { return string(d) }

// UsesReturning reports whether INSERT ... RETURNING is used to read back the
// generated id. MySQL relies on LastInsertId instead.
func (d Dialect) UsesReturning() bool {
	return d == Postgres || d == SQLite
}

// PlaceholderFormat is the bind parameter style squirrel renders for d:
// $1, $2 on PostgreSQL and ? elsewhere.
func (d Dialect) PlaceholderFormat() squirrel.PlaceholderFormat {
	if d == Postgres {
		return squirrel.Dollar
	}
	return squirrel.Question
}

// ParseDialect accepts "postgres", "postgresql", "sqlite", "sqlite3" and
// "mysql".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("%w: %s", shared.ErrUnsupportedDatabase, s)
	}
}

// ParseDatabaseURL detects the dialect and returns the driver connection string
func ParseDatabaseURL(url string) (Dialect, string, error) {
	if url == "" {
		return "", "", shared.ErrMissingDatabaseURL
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Postgres, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return MySQL, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		// Strip sqlite:// prefix to get file path
		return SQLite, strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", shared.ErrInvalidDatabaseURL
}
