// Package resolver implements the Executor Resolver: the
// single point that handlers call to turn an optional session ID into an
// Executor. Neither the Pool nor Session Executors are visible to handler
// code beyond this package's return value.
package resolver

import (
	"context"

	"github.com/kansuler/pggateway/internal/executor"
)

// sessionGetter is the manager capability the resolver needs.
type sessionGetter interface {
	Get(id string) (executor.Executor, error)
}

// Resolver resolves an optional session ID to an Executor.
type Resolver struct {
	pool     executor.Executor
	sessions sessionGetter
}

// New builds a Resolver over the shared pool executor and session manager.
func New(pool executor.Executor, sessions sessionGetter) *Resolver {
	return &Resolver{pool: pool, sessions: sessions}
}

// Resolve returns the Pool Executor when sessionID is empty, or delegates
// to the Session Manager otherwise. The Session Manager raises
// UnknownSession for an absent or expired ID.
func (r *Resolver) Resolve(_ context.Context, sessionID string) (executor.Executor, error) {
	if sessionID == "" {
		return r.pool, nil
	}
	return r.sessions.Get(sessionID)
}
