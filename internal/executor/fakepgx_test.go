package executor

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// fakeRows is a minimal pgx.Rows fake, adapted from the scripted-rows
// fake in Kansuler/octobe's driver/postgres/mock/mock.go (Rows type):
// columns fixed at construction, rows appended with addRow, iterated with
// Next/Values like the real driver.
type fakeRows struct {
	fields []pgconn.FieldDescription
	rows   [][]any
	pos    int
	tag    pgconn.CommandTag
	err    error
	closed bool
}

func newFakeRows(columns ...string) *fakeRows {
	fields := make([]pgconn.FieldDescription, len(columns))
	for i, c := range columns {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return &fakeRows{fields: fields, pos: -1, tag: pgconn.NewCommandTag("SELECT 0")}
}

func (r *fakeRows) withTag(tag string) *fakeRows {
	r.tag = pgconn.NewCommandTag(tag)
	return r
}

func (r *fakeRows) addRow(values ...any) *fakeRows {
	r.rows = append(r.rows, values)
	return r
}

func (r *fakeRows) Close()                                     { r.closed = true }
func (r *fakeRows) Err() error                                  { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag               { return r.tag }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Conn() *pgx.Conn                             { return nil }
func (r *fakeRows) RawValues() [][]byte                         { return nil }

func (r *fakeRows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return io.EOF // unused by runStatement, which reads via Values()
}

func (r *fakeRows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	return r.rows[r.pos], nil
}

// scriptedCall records one expected Exec/Query invocation and its result.
type scriptedCall struct {
	sql  string
	rows *fakeRows
	tag  pgconn.CommandTag
	err  error
}

// fakeQuerier is a hand-rolled stand-in for the narrow querier interface,
// in the same "implement only the methods this package calls" spirit as
// octobe's PGXConn/PGXPool mocks, without reimplementing their full
// expectation-matching machinery.
type fakeQuerier struct {
	execs     []scriptedCall
	queries   []scriptedCall
	execCalls []string
	qCalls    []string
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execCalls = append(f.execCalls, sql)
	if len(f.execs) == 0 {
		return pgconn.NewCommandTag("OK"), nil
	}
	call := f.execs[0]
	f.execs = f.execs[1:]
	return call.tag, call.err
}

func (f *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.qCalls = append(f.qCalls, sql)
	if len(f.queries) == 0 {
		return newFakeRows(), nil
	}
	call := f.queries[0]
	f.queries = f.queries[1:]
	if call.err != nil {
		return nil, call.err
	}
	return call.rows, nil
}

// fakePooledConn is a fakeQuerier plus the Release/Discard bookkeeping
// SessionExecutor relies on, standing in for realPooledConn in tests.
type fakePooledConn struct {
	fakeQuerier
	released   bool
	discarded  bool
	discardErr error
}

func (c *fakePooledConn) Release() { c.released = true }

func (c *fakePooledConn) Discard(_ context.Context) error {
	c.discarded = true
	return c.discardErr
}

// fakePgxPool is a minimal pgxPool fake for PoolExecutor tests. Acquire
// cannot hand back a usable fake, since pgxPool.Acquire is pinned to the
// concrete *pgxpool.Conn type (the same reason SessionExecutor moved to a
// pooledConn interface did not extend to PoolExecutor's Acquire), so it
// only exercises the acquire-failure path and Close.
type fakePgxPool struct {
	fakeQuerier
	acquireErr error
	closed     bool
}

func (p *fakePgxPool) Acquire(_ context.Context) (*pgxpool.Conn, error) {
	return nil, p.acquireErr
}

func (p *fakePgxPool) Close() { p.closed = true }
