package handlers

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/kansuler/pggateway/internal/dispatch"
	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/gatewayerr"
	"github.com/kansuler/pggateway/internal/metrics"
)

// ActivityParams is monitor.activity's parameter shape.
type ActivityParams struct {
	Database string `json:"database"`
}

// Activity reports current backends from pg_stat_activity (read).
func Activity(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*ActivityParams)

	b := catalogBuilder.Select("pid", "usename", "datname", "state", "query", "query_start").
		From("pg_catalog.pg_stat_activity").
		OrderBy("query_start DESC NULLS LAST")
	if p.Database != "" {
		b = b.Where(sq.Eq{"datname": p.Database})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, gatewayerr.Wrap(err, gatewayerr.Internal, "failed to build activity query")
	}

	exec, err := hctx.Resolver.Resolve(ctx, "")
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, sql, args, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

// LocksParams is monitor.locks's parameter shape.
type LocksParams struct {
	GrantedOnly bool `json:"granted_only"`
}

// Locks reports current locks from pg_locks (read).
func Locks(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*LocksParams)

	b := catalogBuilder.Select("pid", "locktype", "relation::regclass AS relation", "mode", "granted").
		From("pg_catalog.pg_locks")
	if p.GrantedOnly {
		b = b.Where(sq.Eq{"granted": true})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, gatewayerr.Wrap(err, gatewayerr.Internal, "failed to build locks query")
	}

	exec, err := hctx.Resolver.Resolve(ctx, "")
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, sql, args, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}

// MetricsParams is monitor.metrics's parameter shape — currently no
// filters, but kept as a struct (rather than nil) so the registration
// table's NewParams factory shape stays uniform across every action.
type MetricsParams struct{}

// MetricsResult is monitor.metrics's result: a flattened snapshot of the
// process's in-process gauges/counters (internal/metrics).
type MetricsResult struct {
	Samples []metrics.Sample `json:"samples"`
}

// Metrics reports the current Prometheus collector values as query-shaped
// rows rather than an HTTP /metrics endpoint (no such endpoint is in
// scope here).
func Metrics(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	if hctx.Metrics == nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "metrics registry is not configured")
	}
	if hctx.Sessions != nil {
		hctx.Metrics.ActiveSessions.Set(float64(len(hctx.Sessions.List())))
	}
	samples, err := hctx.Metrics.Collect()
	if err != nil {
		return nil, gatewayerr.Wrap(err, gatewayerr.Internal, "failed to collect metrics")
	}
	return MetricsResult{Samples: samples}, nil
}
