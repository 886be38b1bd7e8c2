package service

import (
	"context"
	"sync"
	"time"

	dErrors "ipregistry/pkg/domain-errors"
)

// StoreTx provides the unit-of-work boundary for paired mutations: the
// conditional status update and the audit append either both commit or
// neither does. Implementations wrap a database transaction or, in-memory,
// a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds a unit of work that arrives without a deadline.
const defaultTxTimeout = 5 * time.Second

// MemoryTx serializes units of work with a single mutex, the in-memory
// counterpart of the postgres transaction. Concurrent transitions are fully
// ordered; rollback is not simulated, so a mid-unit failure in memory mode
// can leave a partial write (the memory stores back tests and local
// development only).
type MemoryTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewMemoryTx() *MemoryTx {
	return &MemoryTx{}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}
