package handlers

import (
	"context"
	"strings"

	"github.com/kansuler/pggateway/internal/dispatch"
	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/gatewayerr"
)

// QueryOptions carries the per-call execution options (currently just the
// statement timeout).
type QueryOptions struct {
	TimeoutMS int `json:"timeout_ms" validate:"omitempty,min=0"`
}

func (o QueryOptions) toExecutorOptions() executor.Options {
	return executor.Options{TimeoutMS: o.TimeoutMS}
}

// ReadParams is query.read's parameter shape.
type ReadParams struct {
	SQL     string       `json:"sql" validate:"required"`
	Params  []any        `json:"params"`
	Session string       `json:"session_id"`
	Options QueryOptions `json:"options"`
}

func (p *ReadParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*ReadParams)(nil)

// Read resolves the executor and runs sql verbatim, returning rows, row
// count, and field descriptions.
func Read(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*ReadParams)
	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, p.SQL, p.Params, p.Options.toExecutorOptions())
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

// WriteParams is query.write's parameter shape. The safety-layer check
// itself runs in the Dispatcher before this handler is ever called; by
// the time Write executes, session_id or autocommit is known to be
// present.
type WriteParams struct {
	SQL            string       `json:"sql" validate:"required"`
	Params         []any        `json:"params"`
	Session        string       `json:"session_id"`
	AutocommitFlag bool         `json:"autocommit"`
	Options        QueryOptions `json:"options"`
}

func (p *WriteParams) SessionID() string { return p.Session }
func (p *WriteParams) Autocommit() bool  { return p.AutocommitFlag }

var (
	_ dispatch.SessionAware    = (*WriteParams)(nil)
	_ dispatch.AutocommitAware = (*WriteParams)(nil)
)

// Write resolves the executor and runs a mutating statement, returning
// the row count and command tag.
func Write(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*WriteParams)
	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, p.SQL, p.Params, p.Options.toExecutorOptions())
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

// ExplainParams is query.explain's parameter shape.
type ExplainParams struct {
	SQL     string       `json:"sql" validate:"required"`
	Params  []any        `json:"params"`
	Session string       `json:"session_id"`
	Analyze bool         `json:"analyze"`
	Format  string       `json:"format" validate:"omitempty,oneof=TEXT JSON XML YAML"`
	Options QueryOptions `json:"options"`
}

func (p *ExplainParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*ExplainParams)(nil)

// Explain prefixes sql with EXPLAIN (and ANALYZE/FORMAT per options) and
// runs it. EXPLAIN ANALYZE on mutating SQL does mutate; that is the
// caller's responsibility, not this handler's.
func Explain(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*ExplainParams)
	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}

	res, err := exec.Execute(ctx, explainSQL(p), p.Params, p.Options.toExecutorOptions())
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

func explainSQL(p *ExplainParams) string {
	var opts []string
	if p.Analyze {
		opts = append(opts, "ANALYZE")
	}
	if p.Format != "" {
		opts = append(opts, "FORMAT "+p.Format)
	}
	if len(opts) == 0 {
		return "EXPLAIN " + p.SQL
	}
	return "EXPLAIN (" + strings.Join(opts, ", ") + ") " + p.SQL
}

// Operation is one statement inside a query.transaction batch.
type Operation struct {
	SQL    string `json:"sql" validate:"required"`
	Params []any  `json:"params"`
}

// TransactionParams is query.transaction's parameter shape. It carries no
// session_id or autocommit flag: the batch opens and closes its own
// session internally, so it is registered Control rather than Write and
// never reaches the default-deny check.
type TransactionParams struct {
	Operations []Operation `json:"operations" validate:"required,min=1,dive"`
}

// TransactionResult carries one QueryResult per successfully executed
// operation.
type TransactionResult struct {
	Results []QueryResult `json:"results"`
}

// Transaction acquires a fresh session, runs BEGIN, executes each
// operation in order, commits on success or rolls back on the first
// failure, and destroys the temporary session on every exit path. It
// never produces a reusable session_id. Grounded on
// Kansuler/octobe's StartTransaction: begin, run, rollback-on-error via
// defer, commit on success — adapted from "call a user closure" to "run a
// fixed list of operations in order," and from octobe's two-error-return
// Commit/Rollback to this package's single destroy-always Close.
func Transaction(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*TransactionParams)

	poolExec, err := hctx.Resolver.Resolve(ctx, "")
	if err != nil {
		return nil, err
	}
	sess, err := poolExec.DeriveSession(ctx)
	if err != nil {
		return nil, classifyDBError(err)
	}
	defer sess.Close(ctx, true)

	if _, err := sess.Execute(ctx, "BEGIN", nil, executor.Options{}); err != nil {
		return nil, classifyDBError(err)
	}

	results := make([]QueryResult, 0, len(p.Operations))
	for i, op := range p.Operations {
		res, err := sess.Execute(ctx, op.SQL, op.Params, executor.Options{})
		if err != nil {
			_, _ = sess.Execute(ctx, "ROLLBACK", nil, executor.Options{})
			dbErr := classifyDBError(err)
			if ge, ok := gatewayerr.AsError(dbErr); ok {
				if ge.Details == nil {
					ge.Details = map[string]any{}
				}
				ge.Details["index"] = i
			}
			return nil, dbErr
		}
		results = append(results, resultFrom(res))
	}

	if _, err := sess.Execute(ctx, "COMMIT", nil, executor.Options{}); err != nil {
		return nil, classifyDBError(err)
	}

	return TransactionResult{Results: results}, nil
}
