package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txContextKey struct{}

// TransactionManager runs store calls in one database transaction by carrying
// the *sqlx.Tx in the context.
type TransactionManager struct {
	db *sqlx.DB
}

func NewTransactionManager(db *sqlx.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction commits when fn returns nil and rolls back otherwise,
// including on panic. A call nested inside an open transaction joins it.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sqlx.Tx)
	return tx
}

// executor returns the transaction bound to ctx, or db outside one.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
