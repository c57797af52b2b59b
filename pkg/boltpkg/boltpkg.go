// Package boltpkg provides bbolt helpers mirroring the dbpkg transaction scope.
package boltpkg

import (
	"context"
	"database/sql"

	bolt "go.etcd.io/bbolt"
)

type txKey struct{}

// WithTx returns a context carrying the given bolt transaction.
func WithTx(ctx context.Context, tx *bolt.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Update runs fn in the transaction carried by ctx, or in a fresh
// read-write transaction when there is none.
func Update(ctx context.Context, db *bolt.DB, fn func(tx *bolt.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(tx)
	}

	return db.Update(fn)
}

// View runs fn in the transaction carried by ctx, or in a fresh read-only
// transaction when there is none.
func View(ctx context.Context, db *bolt.DB, fn func(tx *bolt.Tx) error) error {
	if tx, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(tx)
	}

	return db.View(fn)
}

// TxManager runs functions within bolt read-write transactions.
type TxManager struct {
	db *bolt.DB
}

// NewTxManager returns a TxManager on the given database.
func NewTxManager(db *bolt.DB) *TxManager {
	return &TxManager{db: db}
}

// Scope executes fn within one bolt read-write transaction. Bolt has a
// single writer, so the isolation level is accepted for interface
// compatibility and ignored. A scope opened inside another scope joins the
// outer transaction.
func (m *TxManager) Scope(ctx context.Context, _ sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*bolt.Tx); ok {
		return fn(ctx)
	}

	return m.db.Update(func(tx *bolt.Tx) error {
		return fn(WithTx(ctx, tx))
	})
}
