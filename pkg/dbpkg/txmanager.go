package dbpkg

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// WithTx returns a context carrying the given database transaction.
// Repositories pick it up through Querier so their statements join the
// transaction instead of running on the bare connection pool.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Querier returns the transaction carried by ctx, or db when there is none.
func Querier(ctx context.Context, db *sql.DB) SQLInterface {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}

	return db
}

// TxManager runs functions within database transactions.
type TxManager struct {
	db *sql.DB
}

// NewTxManager returns a TxManager on the given connection pool.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// Scope executes fn within a database transaction at the given isolation
// level. Repository calls made with the context passed to fn join that
// transaction. A scope opened inside another scope joins the outer
// transaction.
func (m *TxManager) Scope(ctx context.Context, iso sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: iso})
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}

		return err
	}

	return tx.Commit()
}
