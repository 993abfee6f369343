// Package migrations holds the versioned DDL of the common tables, one
// directory per SQL dialect, and runs it through goose.
package migrations

import "embed"

// FS embeds all SQL migration files, laid out as <dialect>/<version>_<name>.sql.
//
//go:embed postgres/*.sql sqlite/*.sql mysql/*.sql
var FS embed.FS
