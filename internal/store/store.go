// Package store gives typed access to the levels and max_id tables.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
	"github.com/tordrt/levelschema/internal/db"
	"github.com/tordrt/levelschema/internal/schema"
	"github.com/tordrt/levelschema/internal/shared"
)

// Level is one row of the levels table.
type Level struct {
	ID    int64
	Level int64
	Hash  *string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs queries against the common tables. A Store returned to a WithTx
// callback is bound to that transaction.
type Store struct {
	dialect db.Dialect
	sqlDB   *sql.DB
	q       querier
	Builder squirrel.StatementBuilderType
	log     *logrus.Logger
}

// New creates a store for an already migrated database.
func New(dialect db.Dialect, sqlDB *sql.DB, log *logrus.Logger) *Store {
	return &Store{
		dialect: dialect,
		sqlDB:   sqlDB,
		q:       sqlDB,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(dialect.PlaceholderFormat()),
		log:     log,
	}
}

// InsertLevel stores a level and its optional block hash and returns the row
// with the id the database assigned.
func (s *Store) InsertLevel(ctx context.Context, level int64, hash *string) (*Level, error) {
	if hash != nil && utf8.RuneCountInString(*hash) > schema.HashMaxLen {
		return nil, fmt.Errorf("%w: %d characters", shared.ErrHashTooLong, utf8.RuneCountInString(*hash))
	}

	var hashArg any
	if hash != nil {
		hashArg = *hash
	}

	insert := s.Builder.Insert(schema.LevelsTable).
		Columns(schema.LevelsLevel, schema.LevelsHash).
		Values(level, hashArg)

	var id int64
	if s.dialect.UsesReturning() {
		query, args, err := insert.Suffix("RETURNING " + schema.LevelsID).ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert query: %w", err)
		}
		if err := s.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, s.insertFailed(level, err)
		}
	} else {
		query, args, err := insert.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert query: %w", err)
		}
		res, err := s.q.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, s.insertFailed(level, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to read inserted id: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{"level": level, "id": id}).Debug("level stored")
	return &Level{ID: id, Level: level, Hash: hash}, nil
}

// insertFailed classifies a failed levels insert. Duplicates are expected
// during re-indexing and only logged at debug level.
func (s *Store) insertFailed(level int64, err error) error {
	err = db.ClassifyError(err)
	if db.IsUniqueViolation(err) {
		s.log.WithField("level", level).WithError(err).Debug("level rejected as duplicate")
	} else {
		s.log.WithField("level", level).WithError(err).Warn("level insert failed")
	}
	return fmt.Errorf("failed to insert level %d: %w", level, err)
}

// GetLevel returns the row for level, or ErrLevelNotFound.
func (s *Store) GetLevel(ctx context.Context, level int64) (*Level, error) {
	query, args, err := s.Builder.Select(schema.LevelsID, schema.LevelsLevel, schema.LevelsHash).
		From(schema.LevelsTable).
		Where(squirrel.Eq{schema.LevelsLevel: level}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var l Level
	var hash sql.NullString
	err = s.q.QueryRowContext(ctx, query, args...).Scan(&l.ID, &l.Level, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrLevelNotFound, level)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get level %d: %w", level, err)
	}
	if hash.Valid {
		l.Hash = &hash.String
	}
	return &l, nil
}

// DeleteLevel removes the row for level. It returns ErrLevelNotFound when
// there was nothing to delete.
func (s *Store) DeleteLevel(ctx context.Context, level int64) error {
	query, args, err := s.Builder.Delete(schema.LevelsTable).
		Where(squirrel.Eq{schema.LevelsLevel: level}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete level %d: %w", level, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", shared.ErrLevelNotFound, level)
	}
	return nil
}

// CountLevels returns the number of rows in levels.
func (s *Store) CountLevels(ctx context.Context) (int64, error) {
	return s.count(ctx, schema.LevelsTable)
}

// MaxID returns the value held by max_id. ErrMaxIDMissing is returned when
// the table is empty or the value is NULL.
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	query, args, err := s.Builder.Select(schema.MaxIDColumn).
		From(schema.MaxIDTable).
		Limit(1).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var v sql.NullInt64
	err = s.q.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !v.Valid) {
		return 0, shared.ErrMaxIDMissing
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read max_id: %w", err)
	}
	return v.Int64, nil
}

// SetMaxID overwrites max_id. Like the indexer it updates every row, so a
// table that gained extra rows keeps them all in step.
func (s *Store) SetMaxID(ctx context.Context, v int64) error {
	query, args, err := s.Builder.Update(schema.MaxIDTable).
		Set(schema.MaxIDColumn, v).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set max_id: %w", err)
	}
	s.log.WithField("max_id", v).Debug("max_id updated")
	return nil
}

// MaxIDRows returns the number of rows in max_id. Anything other than 1
// means the singleton has been broken.
func (s *Store) MaxIDRows(ctx context.Context) (int64, error) {
	return s.count(ctx, schema.MaxIDTable)
}

// InsertMaxIDRow appends a row to max_id. The schema accepts it; callers use
// MaxIDRows to detect the result.
func (s *Store) InsertMaxIDRow(ctx context.Context, v int64) error {
	query, args, err := s.Builder.Insert(schema.MaxIDTable).
		Columns(schema.MaxIDColumn).
		Values(v).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert max_id row: %w", err)
	}
	return nil
}

// WithTx runs fn with a store bound to a new transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.sqlDB == nil {
		return errors.New("store is already bound to a transaction")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	txStore := *s
	txStore.sqlDB = nil
	txStore.q = tx

	if err := fn(&txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	query, args, err := s.Builder.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var n int64
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
