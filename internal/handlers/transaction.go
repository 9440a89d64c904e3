package handlers

import (
	"context"

	"github.com/kansuler/pggateway/internal/dispatch"
	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/gatewayerr"
	"github.com/kansuler/pggateway/internal/sanitize"
	"github.com/kansuler/pggateway/internal/sessionmgr"
)

// sessionBeginner is the Session Manager capability tx.begin needs: mint a
// new session entry.
type sessionBeginner interface {
	Begin(ctx context.Context) (string, error)
	Close(ctx context.Context, id string) error
	List() []sessionmgr.SessionInfo
}

// sessions returns the Session Manager through hctx, typed to the narrow
// capability this file needs.
func sessions(hctx *dispatch.Context) sessionBeginner {
	return hctx.Sessions
}

// BeginParams is tx.begin's parameter shape. It carries no session_id:
// opening a session can't require one to already exist, so tx.begin is
// registered Control rather than Write and never reaches the default-deny
// check.
type BeginParams struct {
	IsolationLevel string `json:"isolation_level" validate:"omitempty,oneof=READ_COMMITTED REPEATABLE_READ SERIALIZABLE"`
}

// BeginResult carries the new session id; the Dispatcher reads it via
// SessionID for the tx.begin envelope rule.
type BeginResult struct {
	Session string `json:"session_id"`
}

func (r BeginResult) SessionID() string { return r.Session }

var _ dispatch.SessionProducer = BeginResult{}

// Begin creates a session, issues BEGIN [ISOLATION LEVEL ...] on it, and
// destroys the session before returning if that statement fails — no
// leaked entry.
func Begin(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*BeginParams)

	id, err := sessions(hctx).Begin(ctx)
	if err != nil {
		return nil, err
	}

	exec, err := hctx.Resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	sql := "BEGIN"
	if p.IsolationLevel != "" {
		sql += " ISOLATION LEVEL " + isolationSQL(p.IsolationLevel)
	}

	if _, err := exec.Execute(ctx, sql, nil, executor.Options{}); err != nil {
		_ = sessions(hctx).Close(ctx, id)
		return nil, classifyDBError(err)
	}

	return BeginResult{Session: id}, nil
}

func isolationSQL(level string) string {
	switch level {
	case "READ_COMMITTED":
		return "READ COMMITTED"
	case "REPEATABLE_READ":
		return "REPEATABLE READ"
	case "SERIALIZABLE":
		return "SERIALIZABLE"
	default:
		return level
	}
}

// SessionIDParams is the shared shape for tx.commit/tx.rollback, both of
// which take only session_id. session_id is not validator-required here:
// its absence is its own MissingSessionID kind, distinct
// from a generic InvalidParameters validation failure.
type SessionIDParams struct {
	Session string `json:"session_id"`
}

func (p *SessionIDParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*SessionIDParams)(nil)

// Commit issues COMMIT then destroy-closes the session; the session id
// becomes invalid regardless of whether COMMIT itself failed, since
// either way the connection cannot be safely reused.
func Commit(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	return endTransaction(ctx, hctx, rawParams, "COMMIT")
}

// Rollback issues ROLLBACK then destroy-closes the session.
func Rollback(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	return endTransaction(ctx, hctx, rawParams, "ROLLBACK")
}

func endTransaction(ctx context.Context, hctx *dispatch.Context, rawParams any, sql string) (any, error) {
	p := rawParams.(*SessionIDParams)
	if p.Session == "" {
		return nil, gatewayerr.New(gatewayerr.MissingSessionID, "session_id is required")
	}

	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	_, execErr := exec.Execute(ctx, sql, nil, executor.Options{})
	_ = sessions(hctx).Close(ctx, p.Session)
	if execErr != nil {
		return nil, classifyDBError(execErr)
	}
	return QueryResult{CommandTag: sql}, nil
}

// SavepointParams is the shared shape for tx.savepoint/tx.release.
// session_id is checked explicitly, not validator-required; see
// SessionIDParams for why.
type SavepointParams struct {
	Session string `json:"session_id"`
	Name    string `json:"name" validate:"required"`
}

func (p *SavepointParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*SavepointParams)(nil)

// Savepoint sanitizes name and issues SAVEPOINT <name>. A failure leaves
// the session open; the caller may retry or roll back, and the reaper is
// the backstop if it never does.
func Savepoint(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	return savepointStatement(ctx, hctx, rawParams, "SAVEPOINT")
}

// Release sanitizes name and issues RELEASE SAVEPOINT <name>.
func Release(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	return savepointStatement(ctx, hctx, rawParams, "RELEASE SAVEPOINT")
}

func savepointStatement(ctx context.Context, hctx *dispatch.Context, rawParams any, verb string) (any, error) {
	p := rawParams.(*SavepointParams)
	if p.Session == "" {
		return nil, gatewayerr.New(gatewayerr.MissingSessionID, "session_id is required")
	}

	ident, err := sanitize.Identifier(p.Name)
	if err != nil {
		return nil, err
	}

	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, verb+" "+ident, nil, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

// ListSessionsResult is tx.list's result: the Session Manager's snapshot.
type ListSessionsResult struct {
	Sessions []sessionmgr.SessionInfo `json:"sessions"`
}

// ListSessions returns the Session Manager's list().
func ListSessions(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	return ListSessionsResult{Sessions: sessions(hctx).List()}, nil
}
