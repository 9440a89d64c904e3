package sessionmgr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kansuler/pggateway/internal/executor"
)

// fakeExecutor stands in for a SessionExecutor in unit tests: no real
// connection, just bookkeeping of what was asked of it.
type fakeExecutor struct {
	mu         sync.Mutex
	executed   []string
	closed     bool
	destroyed  bool
	executeErr error
}

func (e *fakeExecutor) Execute(_ context.Context, sql string, _ []any, _ executor.Options) (executor.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, sql)
	if e.executeErr != nil {
		return executor.Result{}, e.executeErr
	}
	return executor.Result{}, nil
}

func (e *fakeExecutor) Close(_ context.Context, destroy bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.destroyed = destroy
	return nil
}

func (e *fakeExecutor) DeriveSession(_ context.Context) (executor.Executor, error) {
	return e, nil
}

// fakePool mints fakeExecutors and counts how many were handed out, so
// tests can assert the reservation/close balance under concurrency.
type fakePool struct {
	deriveErr   error
	minted      int32
	closedCount int32
}

func (p *fakePool) DeriveSession(context.Context) (executor.Executor, error) {
	if p.deriveErr != nil {
		return nil, p.deriveErr
	}
	atomic.AddInt32(&p.minted, 1)
	return &fakeExecutor{}, nil
}

func (p *fakePool) Close(context.Context, bool) error {
	atomic.AddInt32(&p.closedCount, 1)
	return nil
}

var errDeriveFailed = errors.New("no connections available")
