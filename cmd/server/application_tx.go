package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/tx"
)

const defaultApplicationTxTimeout = 5 * time.Second

// applicationPostgresTx runs engine write sequences inside one database
// transaction. The *sql.Tx travels in the context so the stores pick it up
// without knowing they are inside a unit of work.
type applicationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newApplicationPostgresTx(db *sql.DB) *applicationPostgresTx {
	return &applicationPostgresTx{db: db}
}

func (t *applicationPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultApplicationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}
