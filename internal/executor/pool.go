package executor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxPool is the subset of *pgxpool.Pool the PoolExecutor needs. Narrowing
// to an interface (rather than depending on *pgxpool.Pool directly) follows
// the PGXPool idiom in Kansuler/octobe's driver/postgres/pgxpool.go, and
// lets tests substitute a fake pool.
type pgxPool interface {
	querier
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// PoolExecutor wraps a shared connection pool sized within [pool_min,
// pool_max]. Every Execute call acquires a connection, runs the
// statement, and releases the connection back to the pool.
type PoolExecutor struct {
	pool pgxPool
}

var _ Executor = (*PoolExecutor)(nil)

// NewPoolExecutor builds a PoolExecutor over an already-configured pgxpool.
func NewPoolExecutor(pool *pgxpool.Pool) *PoolExecutor {
	return &PoolExecutor{pool: pool}
}

// Execute acquires one connection, runs sql, and releases the connection.
func (e *PoolExecutor) Execute(ctx context.Context, sql string, args []any, opts Options) (Result, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Release()

	return runStatement(ctx, conn, sql, args, opts)
}

// Close drains and terminates the pool. The destroy flag has no meaning
// for a pool-wide close: there is no single connection to
// selectively return or destroy.
func (e *PoolExecutor) Close(_ context.Context, _ bool) error {
	e.pool.Close()
	return nil
}

// DeriveSession acquires a dedicated connection, without releasing it, and
// wraps it as a SessionExecutor.
func (e *PoolExecutor) DeriveSession(ctx context.Context) (Executor, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return newSessionExecutor(conn), nil
}
