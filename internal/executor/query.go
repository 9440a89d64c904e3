package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the narrow surface both *pgxpool.Pool and *pgxpool.Conn (and
// pgx.Tx, for symmetry with a transaction-aware caller) share. Mirrors
// the PGXPool/PGXConn interface-narrowing idiom from Kansuler/octobe's
// driver/postgres/{pgx,pgxpool}.go.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ querier = (*pgx.Conn)(nil)

// runStatement executes sql against q, applying opts.TimeoutMS as a
// session-scoped statement_timeout when set. It unifies reads
// and writes behind pgx's Query, which returns a usable CommandTag for
// non-SELECT statements too.
func runStatement(ctx context.Context, q querier, sql string, args []any, opts Options) (Result, error) {
	if opts.TimeoutMS > 0 {
		if _, err := q.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", opts.TimeoutMS)); err != nil {
			return Result{}, err
		}
		defer func() {
			// The primary result/error below must not be masked by a
			// reset failure on a connection that may already be dead.
			_, _ = q.Exec(ctx, "SET statement_timeout = 0")
		}()
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	fields := make([]FieldDescription, len(descs))
	for i, d := range descs {
		fields[i] = FieldDescription{Name: d.Name, Type: fmt.Sprintf("oid:%d", d.DataTypeOID)}
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			if i < len(values) {
				row[f.Name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	tag := rows.CommandTag()
	return Result{
		Rows:         out,
		RowsAffected: tag.RowsAffected(),
		Fields:       fields,
		CommandTag:   tag.String(),
	}, nil
}
