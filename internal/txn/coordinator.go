// Package txn runs database writes so that cache invalidations issued while
// they run take effect only if the writes commit.
package txn

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/coursecache/internal/cache"
	"github.com/dmitrijs2005/coursecache/internal/dbx"
	"github.com/dmitrijs2005/coursecache/internal/logging"
)

type txState struct {
	tx    dbx.DBTX
	depth int
}

type txCtxKey struct{}

// Coordinator pairs each transaction level with a cache scope.
type Coordinator struct {
	db  *sql.DB
	log logging.Logger
	seq atomic.Uint64
}

func NewCoordinator(db *sql.DB, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop()
	}
	return &Coordinator{db: db, log: log}
}

// Atomic runs fn inside a transaction. Called with a context that already
// carries one, it opens a savepoint instead. When fn fails or panics, the
// database work and every cache invalidation issued through the handed
// context are discarded for that level only. When the outermost level
// commits, its invalidations are applied to the cache.
func (c *Coordinator) Atomic(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if st, ok := ctx.Value(txCtxKey{}).(*txState); ok {
		return c.nested(ctx, st, fn)
	}
	return c.outermost(ctx, fn)
}

func (c *Coordinator) outermost(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	scopeCtx, scope := cache.BeginScope(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = scope.Rollback()
		}
	}()

	err := dbx.WithTx(scopeCtx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(context.WithValue(ctx, txCtxKey{}, &txState{tx: tx}), tx)
	})
	if err != nil {
		return err
	}
	committed = true

	pending := scope.Pending()
	if err := scope.Commit(ctx); err != nil {
		// the write itself is durable; a failed flush only leaves derived data stale
		c.log.Error(ctx, "flushing cache invalidations failed", "pending", pending, "error", err)
		return nil
	}
	if pending > 0 {
		c.log.Debug(ctx, "cache invalidations flushed", "count", pending)
	}
	return nil
}

func (c *Coordinator) nested(ctx context.Context, st *txState, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	name := fmt.Sprintf("sp_%d", c.seq.Add(1))
	scopeCtx, scope := cache.BeginScope(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = scope.Rollback()
		}
	}()

	child := &txState{tx: st.tx, depth: st.depth + 1}
	err := dbx.WithSavepoint(scopeCtx, st.tx, name, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(context.WithValue(ctx, txCtxKey{}, child), tx)
	})
	if err != nil {
		return err
	}
	committed = true
	return scope.Commit(scopeCtx)
}

// Executor returns the transaction carried by ctx, or the plain database
// handle outside of Atomic.
func (c *Coordinator) Executor(ctx context.Context) dbx.DBTX {
	if st, ok := ctx.Value(txCtxKey{}).(*txState); ok {
		return st.tx
	}
	return c.db
}

// Depth returns 0 outside a transaction, 1 in the outermost one and one more
// for each savepoint.
func Depth(ctx context.Context) int {
	if st, ok := ctx.Value(txCtxKey{}).(*txState); ok {
		return st.depth + 1
	}
	return 0
}
