// Package executor implements the Executor Abstraction:
// a single query interface that unifies pool-backed, stateless execution
// with session-backed, transactional execution so that higher layers never
// see the difference.
package executor

import "context"

// FieldDescription names one column of a Result.
type FieldDescription struct {
	Name string
	Type string
}

// Result is the uniform shape every Executor call returns: zero or more
// rows (each a column-name-keyed map), a row count where applicable, a
// field-description list, and the raw PostgreSQL command tag (e.g.
// "INSERT 0 1").
type Result struct {
	Rows         []map[string]any
	RowsAffected int64
	Fields       []FieldDescription
	CommandTag   string
}

// Options carries per-call execution options. TimeoutMS, when non-zero,
// is applied via SET statement_timeout for the duration of the call.
type Options struct {
	TimeoutMS int
}

// Executor is the capability every handler is given: run SQL, close the
// underlying connection (returning it to the pool or destroying it), and
// derive a dedicated session from it. Two concrete implementations exist:
// PoolExecutor and SessionExecutor. DeriveSession on SessionExecutor is
// idempotent and returns itself.
type Executor interface {
	// Execute runs sql with positionally-bound args and returns a Result.
	Execute(ctx context.Context, sql string, args []any, opts Options) (Result, error)

	// Close releases the underlying connection. destroy=false returns it
	// to the shared pool; destroy=true terminates it so it can never be
	// reused.
	Close(ctx context.Context, destroy bool) error

	// DeriveSession returns an Executor pinned to a single dedicated
	// connection for the lifetime of a transaction. Called on a
	// PoolExecutor it acquires a fresh connection; called on a
	// SessionExecutor it returns the receiver unchanged.
	DeriveSession(ctx context.Context) (Executor, error)
}
