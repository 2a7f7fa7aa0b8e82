// Package postgres is the Store backed by PostgreSQL through a pgx pool.
//
// Ordinary transactions run at READ COMMITTED and serialize on row locks
// (SELECT ... FOR UPDATE, always in id order). Every read-write transaction
// also holds a transaction-scoped advisory lock: shared for ordinary work,
// exclusive for TxOptions.Exclusive, so an account deletion never interleaves
// with anything else.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
)

// advisoryKey names the cluster-wide lock used to order exclusive transactions.
const advisoryKey = 0x706f696e7473 // "points"

type Store struct {
	Db *pgxpool.Pool
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if err := CreateSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() error {
	s.Db.Close()
	return nil
}

func (s *Store) InTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) error {
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
		txOpts.IsoLevel = pgx.RepeatableRead
	}

	pgTx, err := s.Db.BeginTx(ctx, txOpts)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("tx begin failed: %w", err))
	}
	defer pgTx.Rollback(ctx)

	if !opts.ReadOnly {
		lock := "SELECT pg_advisory_xact_lock_shared($1)"
		if opts.Exclusive {
			lock = "SELECT pg_advisory_xact_lock($1)"
		}
		if _, err := pgTx.Exec(ctx, lock, advisoryKey); err != nil {
			return domain.Unavailable(fmt.Errorf("advisory lock failed: %w", err))
		}
	}

	if err := fn(&tx{tx: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return castErr(fmt.Errorf("tx commit failed: %w", err))
	}
	return nil
}

type tx struct {
	tx pgx.Tx
}

// castErr replaces driver errors with their domain equivalent.
//
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
func castErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "admin_requests_one_pending" {
				return domain.ErrDuplicateRequest
			}
			return domain.ErrConflict
		case "23503":
			return domain.ErrNotFound
		case "23514":
			if pgErr.ConstraintName == "accounts_points_check" {
				return domain.ErrInsufficientBalance
			}
		}
	}
	return domain.Unavailable(err)
}

// rowScanner is satisfied by pgx.Row and pgx.CollectableRow.
type rowScanner interface {
	Scan(dest ...any) error
}

// affected returns how many rows a DELETE removed.
func affected(tag pgconn.CommandTag, err error) (int, error) {
	if err != nil {
		return 0, castErr(err)
	}
	return int(tag.RowsAffected()), nil
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)
