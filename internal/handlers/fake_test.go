package handlers_test

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kansuler/pggateway/internal/executor"
)

// scriptedExecute queues one Execute() outcome per call, in order.
type scriptedExecute struct {
	result executor.Result
	err    error
}

// fakeExecutor is a minimal executor.Executor stand-in for handler tests:
// no real connection, just a script of Execute outcomes and call capture.
type fakeExecutor struct {
	executes       []scriptedExecute
	calls          []string
	deriveExecutor executor.Executor
	deriveErr      error
	closed         bool
	destroyed      bool
}

func (e *fakeExecutor) Execute(_ context.Context, sql string, _ []any, _ executor.Options) (executor.Result, error) {
	e.calls = append(e.calls, sql)
	if len(e.executes) == 0 {
		return executor.Result{}, nil
	}
	next := e.executes[0]
	e.executes = e.executes[1:]
	return next.result, next.err
}

func (e *fakeExecutor) Close(_ context.Context, destroy bool) error {
	e.closed = true
	e.destroyed = destroy
	return nil
}

func (e *fakeExecutor) DeriveSession(context.Context) (executor.Executor, error) {
	if e.deriveErr != nil {
		return nil, e.deriveErr
	}
	if e.deriveExecutor != nil {
		return e.deriveExecutor, nil
	}
	return e, nil
}

// fakeSessions implements the resolver package's unexported sessionGetter
// interface structurally: any type with a matching Get method satisfies it.
type fakeSessions struct {
	exec executor.Executor
	err  error
}

func (s *fakeSessions) Get(string) (executor.Executor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exec, nil
}

var errConnTimeout = &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}
var errGeneric = errors.New("boom")
