package handlers

import (
	"context"

	"github.com/kansuler/pggateway/internal/dispatch"
	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/sanitize"
)

// ReindexParams is admin.reindex's parameter shape. target
// is validator-required: a database-wide reindex (the empty-target case)
// is rejected here, at parameter validation, rather than ever reaching
// PostgreSQL.
type ReindexParams struct {
	Target  string `json:"target" validate:"required"`
	Schema  string `json:"schema"`
	Session string `json:"session_id"`
}

func (p *ReindexParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*ReindexParams)(nil)

// Reindex issues REINDEX TABLE <target>. Only a single table target is
// supported (indexes are not reindexed individually); REINDEX DATABASE is
// intentionally unreachable since target is required.
func Reindex(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*ReindexParams)
	ident, err := qualifiedName(p.Schema, p.Target)
	if err != nil {
		return nil, err
	}
	return runExecutorThin(ctx, hctx, p.Session, "REINDEX TABLE "+ident)
}

// VacuumParams is admin.vacuum's parameter shape.
type VacuumParams struct {
	Target  string `json:"target"`
	Schema  string `json:"schema"`
	Full    bool   `json:"full"`
	Analyze bool   `json:"analyze"`
	Session string `json:"session_id"`
}

func (p *VacuumParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*VacuumParams)(nil)

// Vacuum issues VACUUM [FULL] [ANALYZE] [<target>]; an empty target runs
// a database-wide VACUUM, which PostgreSQL itself allows (only Reindex
// restricts the database-wide form).
func Vacuum(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*VacuumParams)

	sql := "VACUUM"
	var opts []string
	if p.Full {
		opts = append(opts, "FULL")
	}
	if p.Analyze {
		opts = append(opts, "ANALYZE")
	}
	if len(opts) > 0 {
		sql += " (" + joinComma(opts) + ")"
	}
	if p.Target != "" {
		ident, err := qualifiedName(p.Schema, p.Target)
		if err != nil {
			return nil, err
		}
		sql += " " + ident
	}

	return runExecutorThin(ctx, hctx, p.Session, sql)
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// AnalyzeParams is admin.analyze's parameter shape.
type AnalyzeParams struct {
	Target  string `json:"target"`
	Schema  string `json:"schema"`
	Session string `json:"session_id"`
}

func (p *AnalyzeParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*AnalyzeParams)(nil)

// Analyze issues ANALYZE [<target>].
func Analyze(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*AnalyzeParams)
	sql := "ANALYZE"
	if p.Target != "" {
		ident, err := qualifiedName(p.Schema, p.Target)
		if err != nil {
			return nil, err
		}
		sql += " " + ident
	}
	return runExecutorThin(ctx, hctx, p.Session, sql)
}

// SettingsSetParams is admin.settings.set's parameter shape. This is the
// one admin/monitor action marked write, since it mutates
// server/session configuration state.
type SettingsSetParams struct {
	Name           string `json:"name" validate:"required"`
	Value          string `json:"value" validate:"required"`
	Session        string `json:"session_id"`
	AutocommitFlag bool   `json:"autocommit"`
}

func (p *SettingsSetParams) SessionID() string { return p.Session }
func (p *SettingsSetParams) Autocommit() bool  { return p.AutocommitFlag }

var (
	_ dispatch.SessionAware    = (*SettingsSetParams)(nil)
	_ dispatch.AutocommitAware = (*SettingsSetParams)(nil)
)

// SettingsSet issues SET <name> = $1. name is sanitized as an
// identifier (it names a GUC, not an arbitrary expression); value is
// passed as a bound parameter, never interpolated into SQL text.
func SettingsSet(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*SettingsSetParams)
	ident, err := sanitize.Identifier(p.Name)
	if err != nil {
		return nil, err
	}

	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, "SET "+ident+" = $1", []any{p.Value}, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

// SettingsGetParams is admin.settings.get's parameter shape.
type SettingsGetParams struct {
	Name    string `json:"name" validate:"required"`
	Session string `json:"session_id"`
}

func (p *SettingsGetParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*SettingsGetParams)(nil)

// SettingsGet issues SHOW <name>.
func SettingsGet(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*SettingsGetParams)
	ident, err := sanitize.Identifier(p.Name)
	if err != nil {
		return nil, err
	}
	return runExecutorThin(ctx, hctx, p.Session, "SHOW "+ident)
}

func runExecutorThin(ctx context.Context, hctx *dispatch.Context, session, sql string) (any, error) {
	exec, err := hctx.Resolver.Resolve(ctx, session)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, sql, nil, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}
