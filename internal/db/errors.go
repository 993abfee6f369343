package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/tordrt/levelschema/internal/shared"
)

const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgStringDataTruncated = "22001"

	mysqlDuplicateEntry = 1062
	mysqlDataTooLong    = 1406
	mysqlCheckViolated  = 3819
)

// ClassifyError maps driver errors raised by writes to levels onto the
// shared sentinels. The driver error stays wrapped. Errors it does not
// recognise are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return uniqueViolation(pgErr.ConstraintName+" "+pgErr.Detail, err)
		case pgStringDataTruncated, pgCheckViolation:
			return fmt.Errorf("%w: %w", shared.ErrHashTooLong, err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return uniqueViolation(liteErr.Error(), err)
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %w", shared.ErrHashTooLong, err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return uniqueViolation(myErr.Message, err)
		case mysqlDataTooLong, mysqlCheckViolated:
			return fmt.Errorf("%w: %w", shared.ErrHashTooLong, err)
		}
		return err
	}

	return err
}

// IsUniqueViolation reports whether err is a duplicate level or hash.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, shared.ErrDuplicateLevel) || errors.Is(err, shared.ErrDuplicateHash)
}

// uniqueViolation decides which unique index fired from the text the driver
// reports: a constraint name, a "table.column" pair or a key name.
func uniqueViolation(detail string, err error) error {
	if strings.Contains(strings.ToLower(detail), "hash") {
		return fmt.Errorf("%w: %w", shared.ErrDuplicateHash, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrDuplicateLevel, err)
}
