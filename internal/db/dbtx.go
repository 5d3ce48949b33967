package db

import (
	"context"
	"database/sql"
)

// DBTX is what the session and work-log repositories execute against. A
// repository built on the pool runs each statement on its own; one built
// inside UnitOfWork.WithinTx shares the transaction, so a conversion's
// work-log insert and session link commit or roll back together.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
