package dispatch

import (
	"context"

	"github.com/kansuler/pggateway/internal/safety"
)

// HandlerFunc is the shape every action handler implements. params is the
// already-decoded, already-validated struct reg.NewParams produced; the
// returned value becomes the envelope's result field.
type HandlerFunc func(ctx context.Context, hctx *Context, params any) (any, error)

// Registration is one (tool, action) table entry: static metadata built
// once at process start and looked up by map, in place of reflection-
// based dynamic dispatch.
type Registration struct {
	// Marker classifies the action for the Safety Layer and the
	// Session-Echo envelope.
	Marker safety.Marker
	// IsBegin marks tx.begin specifically: the only action whose relevant
	// session ID comes from the result, not the params.
	IsBegin bool
	// NewParams returns a fresh pointer to this action's parameter struct,
	// the sum-type-by-table-lookup the design note asks for in place of
	// reflection-based map digging.
	NewParams func() any
	Handle    HandlerFunc
}

// SessionAware is implemented by parameter structs that carry a
// session_id field, so the dispatcher can read it without reflection.
type SessionAware interface {
	SessionID() string
}

// AutocommitAware is implemented by parameter structs for write actions
// that accept the autocommit escape hatch.
type AutocommitAware interface {
	Autocommit() bool
}

// SessionProducer is implemented by handler results that mint a new
// session id (currently only tx.begin's result).
type SessionProducer interface {
	SessionID() string
}
