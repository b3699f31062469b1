// Package postgres implements the store interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the stores use. pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transaction wraps a pgx.Tx to implement store.Transaction.
type Transaction struct {
	tx pgx.Tx
}

func (t *Transaction) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *Transaction) Rollback() error {
	return t.tx.Rollback(context.Background())
}
