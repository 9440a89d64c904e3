package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/kansuler/pggateway/internal/metrics"
	"github.com/kansuler/pggateway/internal/resolver"
	"github.com/kansuler/pggateway/internal/sessionmgr"
)

// Context is the explicit, by-reference struct threaded into every handler
// call — the design note's replacement for an injected framework-global
// "context object carrying executor + session manager". It holds
// everything a handler needs and nothing it shouldn't reach for, mirroring
// how rickchristie-postgres-mcp's PostgresMcp bundles pool + sub-components
// into one struct handed to every tool.
type Context struct {
	Resolver *resolver.Resolver
	Sessions *sessionmgr.Manager
	Metrics  *metrics.Registry
	Logger   zerolog.Logger
}
