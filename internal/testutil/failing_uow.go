package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/timekeeper/internal/db"
)

// FailingUoW runs real transactions but injects Err into one write so
// tests can assert that multi-write operations roll back as a whole.
//
// A write fails when it is the FailOn-th ExecContext call (counted from 1)
// or, if Match is set, when its SQL contains Match. Reads are never
// intercepted.
type FailingUoW struct {
	DB     *sql.DB
	FailOn int32
	Match  string
	Err    error

	failed atomic.Int32
}

// Failures reports how many writes were rejected across all transactions.
func (u *FailingUoW) Failures() int {
	return int(u.failed.Load())
}

func (u *FailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failingExec{DBTX: tx, uow: u}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

type failingExec struct {
	db.DBTX
	uow   *FailingUoW
	count atomic.Int32
}

func (f *failingExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.count.Add(1)
	hit := n == f.uow.FailOn
	if f.uow.Match != "" {
		hit = strings.Contains(query, f.uow.Match)
	}
	if hit {
		f.uow.failed.Add(1)
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
