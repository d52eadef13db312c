package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/gazette/articles"
	"github.com/nasermirzaei89/gazette/discuss"
)

type contextKeyTx struct{}

// TxManager runs functions inside a transaction carried by the context.
// Repositories pick the transaction up from the context they are called with.
type TxManager struct {
	db *sql.DB
}

var (
	_ discuss.Transactor  = (*TxManager)(nil)
	_ articles.Transactor = (*TxManager)(nil)
)

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
// Nested calls join the outer transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(contextKeyTx{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "failed to rollback transaction", "error", rbErr)
		}
	}()

	err = fn(context.WithValue(ctx, contextKeyTx{}, tx))
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func runner(ctx context.Context, db *sql.DB) sq.StdSqlCtx {
	tx, ok := ctx.Value(contextKeyTx{}).(*sql.Tx)
	if ok {
		return tx
	}

	return db
}
