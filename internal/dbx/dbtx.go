// Package dbx holds the database plumbing shared by repositories and
// services: the DBTX handle, transactional execution and PostgreSQL error
// classification.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is implemented by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// maxTxAttempts bounds how often WithTx reruns a transaction that failed
// with a serialization failure or deadlock.
const maxTxAttempts = 3

// WithTx runs fn inside a transaction: commit when fn returns nil, rollback
// otherwise. A panic in fn rolls back and is rethrown. Transactions aborted
// by the database as retryable (see IsRetryable) are rerun from scratch, so
// fn must not keep side effects outside tx.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return repos.Solves(tx).Create(ctx, solve)
//	})
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	for attempt := 1; ; attempt++ {
		err := runTx(ctx, db, opts, fn)
		if err == nil || attempt == maxTxAttempts || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
}

func runTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}
