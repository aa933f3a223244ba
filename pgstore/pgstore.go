// Package pgstore implements the authcore.Store contract on PostgreSQL
// through pgx. One Adapter wraps a pgxpool.Pool; InTx hands callbacks an
// Adapter view bound to the transaction, and nested InTx calls join the
// enclosing transaction.
//
// The expected schema is in schema.sql. Emails are stored case-folded; the
// engine normalizes before calling, and the unique index on email enforces
// the case-insensitive constraint.
package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/authcore"
)

// querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Adapter is the PostgreSQL-backed store.
type Adapter struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

var _ authcore.Store = (*Adapter)(nil)

// New wraps a connection pool.
func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
		db:   pool,
	}
}

// InTx runs fn inside a transaction. Any error from fn rolls back; a nested
// call reuses the transaction of the enclosing one.
func (a *Adapter) InTx(ctx context.Context, fn func(authcore.Store) error) error {
	if a.inTx {
		return fn(a)
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	view := &Adapter{
		pool: a.pool,
		db:   tx,
		inTx: true,
	}
	if err := fn(view); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
