package executor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pooledConn is the subset of *pgxpool.Conn that SessionExecutor needs:
// statement execution, graceful return to the pool, and hard termination.
// Narrowing it to an interface (rather than depending on *pgxpool.Conn
// directly) follows the same PGXConn/PGXPool idiom as querier/pgxPool and
// lets tests substitute a fake connection.
type pooledConn interface {
	querier
	Release()
	// Discard physically closes the underlying connection so the pool
	// cannot recycle it.
	Discard(ctx context.Context) error
}

// realPooledConn adapts *pgxpool.Conn to pooledConn; pgxpool.Conn has no
// single-call "hard close" of its own, only Conn().Close(ctx).
type realPooledConn struct {
	*pgxpool.Conn
}

func (c realPooledConn) Discard(ctx context.Context) error {
	return c.Conn.Conn().Close(ctx)
}

// SessionExecutor owns exactly one checked-out connection for the lifetime
// of one client-held session or one-shot transactional batch.
// It is not safe for concurrent use — the Session Manager's single-owner
// discipline guarantees only one handler drives it at a time.
type SessionExecutor struct {
	conn pooledConn
}

var _ Executor = (*SessionExecutor)(nil)

func newSessionExecutor(conn *pgxpool.Conn) *SessionExecutor {
	return &SessionExecutor{conn: realPooledConn{conn}}
}

// Execute runs sql on the pinned connection. Unlike PoolExecutor, the
// connection is never released between calls.
func (e *SessionExecutor) Execute(ctx context.Context, sql string, args []any, opts Options) (Result, error) {
	return runStatement(ctx, e.conn, sql, args, opts)
}

// Close ends the session. destroy=true (the required path on commit,
// rollback, TTL expiry, or error) physically terminates the
// wrapped connection before releasing it, so pgxpool discards it instead
// of returning it to the pool: this is what prevents session-local state
// (temp tables, prepared statements, SET-scoped settings) from leaking
// into a future session. destroy=false returns the connection to the pool
// unchanged; no caller in this repository uses it, since both client-held
// sessions and query.transaction batches always destroy.
func (e *SessionExecutor) Close(ctx context.Context, destroy bool) error {
	if !destroy {
		e.conn.Release()
		return nil
	}

	err := e.conn.Discard(ctx)
	e.conn.Release()
	return err
}

// DeriveSession is idempotent on a SessionExecutor: a session is already a
// dedicated connection, so it returns itself.
func (e *SessionExecutor) DeriveSession(_ context.Context) (Executor, error) {
	return e, nil
}
