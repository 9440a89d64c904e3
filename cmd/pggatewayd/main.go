// Command pggatewayd wires the gateway's components together and serves
// requests over a minimal line-delimited JSON loop on stdin/stdout — a
// stand-in driver for the out-of-scope JSON-RPC/MCP transport. Config
// parsing, logger construction, and dependency wiring are the only
// things main does; everything else lives in internal/.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/kansuler/pggateway/internal/config"
	"github.com/kansuler/pggateway/internal/dispatch"
	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/handlers"
	"github.com/kansuler/pggateway/internal/logging"
	"github.com/kansuler/pggateway/internal/metrics"
	"github.com/kansuler/pggateway/internal/resolver"
	"github.com/kansuler/pggateway/internal/safety"
	"github.com/kansuler/pggateway/internal/sessionmgr"
)

func main() {
	var configPath string
	var logLevel string
	flag.StringVar(&configPath, "config", "", "path to an optional YAML config file")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	logger := logging.New(logging.Level(logLevel), false)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := buildPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	poolExec := executor.NewPoolExecutor(pool)
	sessions := sessionmgr.New(poolExec, sessionmgr.Config{MaxSessions: cfg.MaxSessions, TTL: cfg.SessionTTL}, logger)
	resolv := resolver.New(poolExec, sessions)

	var metricsReg *metrics.Registry
	if cfg.MetricsEnabled {
		metricsReg = metrics.New()
	}

	d := dispatch.New(resolv, sessions, metricsReg, logger)
	registerHandlers(d)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveStdin(gctx, d)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server loop exited with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown: session manager teardown failed")
	}
	logger.Info().Msg("pggatewayd stopped")
}

func buildPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	poolCfg.MinConns = int32(cfg.PoolMin)
	poolCfg.MaxConns = int32(cfg.PoolMax)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	return pool, nil
}

// request is the line-delimited stand-in wire format: one JSON object per
// line on stdin, one envelope per line on stdout.
type request struct {
	Tool   string          `json:"tool"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// serveStdin reads newline-delimited request objects from stdin until ctx
// is canceled or stdin is closed, dispatching each and writing its
// envelope back as a single JSON line on stdout. Logs never touch stdout
// ("Logs go to stderr only"), so the protocol stream stays clean.
func serveStdin(ctx context.Context, d *dispatch.Dispatcher) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			writeEnvelope(out, dispatch.Envelope{Error: &dispatch.ErrorPayload{
				Kind: "invalid_parameters", Message: "malformed request line",
			}})
			continue
		}

		env := d.Dispatch(ctx, req.Tool, req.Action, req.Params)
		writeEnvelope(out, env)
	}
	return scanner.Err()
}

func writeEnvelope(out *bufio.Writer, env dispatch.Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		return
	}
	out.Write(b)
	out.WriteByte('\n')
	out.Flush()
}

// registerHandlers fills the Dispatcher's static (tool, action) table.
// Wiring happens once at process start, never per-request.
func registerHandlers(d *dispatch.Dispatcher) {
	d.Register("query", "read", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.ReadParams{} }, Handle: handlers.Read,
	})
	d.Register("query", "write", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.WriteParams{} }, Handle: handlers.Write,
	})
	d.Register("query", "explain", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.ExplainParams{} }, Handle: handlers.Explain,
	})
	d.Register("query", "transaction", dispatch.Registration{
		Marker: safety.Control, NewParams: func() any { return &handlers.TransactionParams{} }, Handle: handlers.Transaction,
	})

	d.Register("schema", "list", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.ListParams{} }, Handle: handlers.List,
	})
	d.Register("schema", "describe", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.DescribeParams{} }, Handle: handlers.Describe,
	})
	d.Register("schema", "create", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.DDLParams{} }, Handle: handlers.Create,
	})
	d.Register("schema", "alter", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.DDLParams{} }, Handle: handlers.Alter,
	})
	d.Register("schema", "drop", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.DDLParams{} }, Handle: handlers.Drop,
	})

	d.Register("tx", "begin", dispatch.Registration{
		Marker: safety.Control, IsBegin: true,
		NewParams: func() any { return &handlers.BeginParams{} }, Handle: handlers.Begin,
	})
	d.Register("tx", "commit", dispatch.Registration{
		Marker: safety.Control, NewParams: func() any { return &handlers.SessionIDParams{} }, Handle: handlers.Commit,
	})
	d.Register("tx", "rollback", dispatch.Registration{
		Marker: safety.Control, NewParams: func() any { return &handlers.SessionIDParams{} }, Handle: handlers.Rollback,
	})
	d.Register("tx", "savepoint", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.SavepointParams{} }, Handle: handlers.Savepoint,
	})
	d.Register("tx", "release", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.SavepointParams{} }, Handle: handlers.Release,
	})
	d.Register("tx", "list", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &struct{}{} }, Handle: handlers.ListSessions,
	})

	d.Register("admin", "reindex", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.ReindexParams{} }, Handle: handlers.Reindex,
	})
	d.Register("admin", "vacuum", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.VacuumParams{} }, Handle: handlers.Vacuum,
	})
	d.Register("admin", "analyze", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.AnalyzeParams{} }, Handle: handlers.Analyze,
	})
	d.Register("admin", "settings.set", dispatch.Registration{
		Marker: safety.Write, NewParams: func() any { return &handlers.SettingsSetParams{} }, Handle: handlers.SettingsSet,
	})
	d.Register("admin", "settings.get", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.SettingsGetParams{} }, Handle: handlers.SettingsGet,
	})

	d.Register("monitor", "activity", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.ActivityParams{} }, Handle: handlers.Activity,
	})
	d.Register("monitor", "locks", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.LocksParams{} }, Handle: handlers.Locks,
	})
	d.Register("monitor", "metrics", dispatch.Registration{
		Marker: safety.Read, NewParams: func() any { return &handlers.MetricsParams{} }, Handle: handlers.Metrics,
	})
}
