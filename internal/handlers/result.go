// Package handlers implements the per-(tool, action) handlers:
// translate structured parameters into executor calls and produce
// structured results. Each file groups one tool's actions.
package handlers

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/gatewayerr"
)

// QueryResult is the common result shape for any action that runs one
// statement.
type QueryResult struct {
	Rows         []map[string]any           `json:"rows,omitempty"`
	RowsAffected int64                      `json:"rows_affected"`
	Fields       []executor.FieldDescription `json:"fields,omitempty"`
	CommandTag   string                     `json:"command_tag,omitempty"`
}

func resultFrom(r executor.Result) QueryResult {
	return QueryResult{
		Rows:         r.Rows,
		RowsAffected: r.RowsAffected,
		Fields:       r.Fields,
		CommandTag:   r.CommandTag,
	}
}

// classifyDBError wraps any error surfaced from an Executor call as a
// DatabaseError, carrying the PostgreSQL driver's code/message essentially
// verbatim. The pgconn.PgError classification is grounded on
// wb-go/wbf's isRetryableError switch (other_examples/transaction-manager)
// — reused only to extract code/detail for the error payload, since
// nothing here is retried automatically.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return gatewayerr.Wrap(err, gatewayerr.DatabaseError, pgErr.Message).WithDetails(map[string]any{
			"code":   pgErr.Code,
			"detail": pgErr.Detail,
		})
	}
	return gatewayerr.Wrap(err, gatewayerr.DatabaseError, err.Error())
}
