package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const DBTxKey contextKey = "db_tx"

// TxFromContext retrieves an in-flight transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on the tenant-scoped connection and returns a
// child context carrying it. Repositories resolve tx > conn > pool, so every
// query issued under the returned context joins the transaction.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, fmt.Errorf("no database connection in context")
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// RunInTx executes fn inside a transaction, committing on success and rolling
// back on error or panic. If the context already carries a transaction, fn
// joins it and commit/rollback is left to the outer owner.
func RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	txCtx, tx, err := WithTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
