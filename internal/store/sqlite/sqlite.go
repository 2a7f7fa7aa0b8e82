// Package sqlite is the single-file Store. It uses the pure Go modernc.org/sqlite
// driver through sqlx.
//
// SQLite allows one writer at a time, so the pool is capped at a single
// connection and every transaction starts IMMEDIATE. Transactions are
// therefore fully serialized, which also satisfies TxOptions.Exclusive.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var errReadOnly = errors.New("write in read-only transaction")

type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database file at path and applies the
// schema. ":memory:" gives a private throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("cannot open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	// A :memory: database lives only as long as its connection.
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	if path == ":memory:" {
		return "file::memory:?" + q.Encode()
	}
	return "file:" + path + "?" + q.Encode()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("tx begin failed: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx, readOnly: opts.ReadOnly}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return castErr(fmt.Errorf("tx commit failed: %w", err))
	}
	return nil
}

type tx struct {
	tx       *sqlx.Tx
	readOnly bool
}

func (t *tx) exec(ctx context.Context, query string, args ...any) (int, error) {
	if t.readOnly {
		return 0, domain.Unavailable(errReadOnly)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, castErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, castErr(err)
	}
	return int(n), nil
}

// execOne runs a statement that must touch exactly one row.
func (t *tx) execOne(ctx context.Context, query string, args ...any) error {
	n, err := t.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.ErrNotFound
	}
	return nil
}

// castErr replaces driver errors with their domain equivalent.
func castErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var sqlErr *sqlitedriver.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			if strings.Contains(sqlErr.Error(), "admin_requests.") {
				return domain.ErrDuplicateRequest
			}
			return domain.ErrConflict
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return domain.ErrNotFound
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			if strings.Contains(sqlErr.Error(), "accounts_points_check") {
				return domain.ErrInsufficientBalance
			}
		}
	}
	return domain.Unavailable(err)
}

// Timestamps are stored as unix nanoseconds so they sort as integers.
func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }
func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)
