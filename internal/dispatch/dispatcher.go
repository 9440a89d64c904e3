// Package dispatch implements the tool action dispatcher and the handler
// registration table: a static map built at process start, replacing
// reflection-based dynamic lookup.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/kansuler/pggateway/internal/gatewayerr"
	"github.com/kansuler/pggateway/internal/metrics"
	"github.com/kansuler/pggateway/internal/resolver"
	"github.com/kansuler/pggateway/internal/safety"
	"github.com/kansuler/pggateway/internal/sessionmgr"
)

type actionKey struct {
	Tool   string
	Action string
}

// Dispatcher routes (tool, action, params) to the registered handler and
// wraps the result in the session-echo response envelope.
type Dispatcher struct {
	registrations map[actionKey]Registration
	validate      *validator.Validate
	resolver      *resolver.Resolver
	sessions      *sessionmgr.Manager
	metrics       *metrics.Registry
	logger        zerolog.Logger
}

// New builds an empty Dispatcher bound to the given resolver/session
// manager/metrics registry/logger. Callers fill the table with Register
// before serving requests. metricsReg may be nil in tests that don't
// exercise monitor.metrics.
func New(resolver *resolver.Resolver, sessions *sessionmgr.Manager, metricsReg *metrics.Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registrations: make(map[actionKey]Registration),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		resolver:      resolver,
		sessions:      sessions,
		metrics:       metricsReg,
		logger:        logger,
	}
}

// Register adds one (tool, action) entry to the table. Called at process
// start from cmd/pggatewayd's wiring; never at request time.
func (d *Dispatcher) Register(tool, action string, reg Registration) {
	d.registrations[actionKey{Tool: tool, Action: action}] = reg
}

// HandlerContext exposes the Resolver/Sessions/Logger this Dispatcher was
// built with, so wiring code can build a matching Context for handlers
// that are registered outside this package (internal/handlers).
func (d *Dispatcher) HandlerContext() *Context {
	return &Context{Resolver: d.resolver, Sessions: d.sessions, Metrics: d.metrics, Logger: d.logger}
}

// Dispatch is the single synchronous entrypoint: dispatch(tool, action,
// params) -> envelope. rawParams is the decoded JSON params object for
// this action (or nil/empty for parameterless actions like tx.list).
func (d *Dispatcher) Dispatch(ctx context.Context, tool, action string, rawParams json.RawMessage) Envelope {
	start := time.Now()
	log := d.logger.With().Str("tool", tool).Str("action", action).Logger()
	fail := func(err error) Envelope {
		if d.metrics != nil {
			d.metrics.ActionErrors.WithLabelValues(string(gatewayerr.GetKind(err))).Inc()
		}
		return errorEnvelope(err)
	}

	reg, ok := d.registrations[actionKey{Tool: tool, Action: action}]
	if !ok {
		err := gatewayerr.Newf(gatewayerr.NotImplemented, "no handler registered for %s.%s", tool, action)
		log.Warn().Msg("dispatch: unknown tool/action")
		return fail(err)
	}

	params := reg.NewParams()
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, params); err != nil {
			gerr := gatewayerr.Wrap(err, gatewayerr.InvalidParameters, "malformed params")
			log.Warn().Err(err).Msg("dispatch: params decode failed")
			return fail(gerr)
		}
	}
	if err := d.validate.Struct(params); err != nil {
		gerr := gatewayerr.Wrap(err, gatewayerr.InvalidParameters, "params failed validation")
		log.Warn().Err(err).Msg("dispatch: params validation failed")
		return fail(gerr)
	}

	startEvt := log.Info()
	if sid := sessionIDOf(params); sid != "" {
		startEvt = startEvt.Str("session_id", sid)
	}
	startEvt.Msg("dispatch: action started")

	if reg.Marker == safety.Write {
		sessionID := sessionIDOf(params)
		autocommit := autocommitOf(params)
		if err := safety.CheckWrite(sessionID, autocommit); err != nil {
			log.Warn().Msg("dispatch: safety check failed, no database call made")
			return fail(err)
		}
	}

	if d.metrics != nil {
		d.metrics.ActionsDispatched.WithLabelValues(tool, action).Inc()
	}

	hctx := d.HandlerContext()
	result, err := reg.Handle(ctx, hctx, params)
	duration := time.Since(start)

	if err != nil {
		kind := gatewayerr.GetKind(err)
		log.Error().Err(err).Dur("duration", duration).Str("kind", string(kind)).Msg("dispatch: handler failed")
		if d.metrics != nil {
			d.metrics.ActionErrors.WithLabelValues(string(kind)).Inc()
		}
		return errorEnvelope(err)
	}

	log.Info().Dur("duration", duration).Msg("dispatch: handler succeeded")

	env := Envelope{Result: result}
	env.ActiveSession = d.buildActiveSession(reg, params, result)
	return env
}

func sessionIDOf(params any) string {
	if sa, ok := params.(SessionAware); ok {
		return sa.SessionID()
	}
	return ""
}

func autocommitOf(params any) bool {
	if aa, ok := params.(AutocommitAware); ok {
		return aa.Autocommit()
	}
	return false
}

func errorEnvelope(err error) Envelope {
	ge, ok := gatewayerr.AsError(err)
	if !ok {
		ge = gatewayerr.Wrap(err, gatewayerr.Internal, "unexpected error")
	}
	return Envelope{Error: &ErrorPayload{
		Kind:    string(ge.Kind),
		Message: ge.Message,
		Details: ge.Details,
	}}
}
