package handlers

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/kansuler/pggateway/internal/dispatch"
	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/gatewayerr"
	"github.com/kansuler/pggateway/internal/sanitize"
)

// catalogBuilder is the squirrel statement builder used for every
// gateway-authored system-catalog query in this file. Dollar placeholders
// match PostgreSQL's positional $n binding, which the schema/table filter
// values below are passed through.
var catalogBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ListOptions carries schema.list's pagination and view-kind toggle.
type ListOptions struct {
	Limit             int  `json:"limit" validate:"omitempty,min=1"`
	Offset            int  `json:"offset" validate:"omitempty,min=0"`
	MaterializedViews bool `json:"materialized_views"`
}

// ListParams is schema.list's parameter shape.
type ListParams struct {
	Target  string      `json:"target" validate:"required,oneof=schema table view function trigger sequence constraint"`
	Schema  string      `json:"schema"`
	Table   string      `json:"table"`
	Options ListOptions `json:"options"`
}

const defaultListLimit = 100

// List translates target to a query over information_schema/pg_catalog
// and runs it against the shared pool. Every target builds
// a query entirely from gateway-authored column/table names — schema and
// table are used only as bound filter values, never interpolated — so
// the Non-goal "parsing/rewriting user-supplied SQL" is untouched.
func List(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*ListParams)
	limit := p.Options.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	builder, err := listQuery(p, limit, p.Options.Offset)
	if err != nil {
		return nil, err
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, gatewayerr.Wrap(err, gatewayerr.Internal, "failed to build catalog query")
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

func listQuery(p *ListParams, limit, offset int) (sq.SelectBuilder, error) {
	switch p.Target {
	case "schema":
		b := catalogBuilder.Select("schema_name", "schema_owner").
			From("information_schema.schemata").
			OrderBy("schema_name")
		return paginate(b, limit, offset), nil

	case "table":
		b := catalogBuilder.Select("table_schema", "table_name", "table_type").
			From("information_schema.tables").
			Where(sq.Eq{"table_type": "BASE TABLE"}).
			OrderBy("table_schema", "table_name")
		b = filterSchema(b, p.Schema)
		return paginate(b, limit, offset), nil

	case "view":
		viewType := "VIEW"
		table := "information_schema.tables"
		columns := []string{"table_schema", "table_name", "table_type"}
		if p.Options.MaterializedViews {
			table = "pg_catalog.pg_matviews"
			columns = []string{"schemaname AS table_schema", "matviewname AS table_name"}
			b := catalogBuilder.Select(columns...).From(table).OrderBy("schemaname", "matviewname")
			b = filterSchemaColumn(b, p.Schema, "schemaname")
			return paginate(b, limit, offset), nil
		}
		b := catalogBuilder.Select(columns...).From(table).
			Where(sq.Eq{"table_type": viewType}).
			OrderBy("table_schema", "table_name")
		b = filterSchema(b, p.Schema)
		return paginate(b, limit, offset), nil

	case "function":
		b := catalogBuilder.Select("routine_schema", "routine_name", "data_type AS return_type").
			From("information_schema.routines").
			Where(sq.Eq{"routine_type": "FUNCTION"}).
			OrderBy("routine_schema", "routine_name")
		b = filterSchemaColumn(b, p.Schema, "routine_schema")
		return paginate(b, limit, offset), nil

	case "trigger":
		b := catalogBuilder.Select("trigger_schema", "trigger_name", "event_object_table", "action_timing", "event_manipulation").
			From("information_schema.triggers").
			OrderBy("trigger_schema", "trigger_name")
		b = filterSchemaColumn(b, p.Schema, "trigger_schema")
		if p.Table != "" {
			b = b.Where(sq.Eq{"event_object_table": p.Table})
		}
		return paginate(b, limit, offset), nil

	case "sequence":
		b := catalogBuilder.Select("sequence_schema", "sequence_name", "data_type").
			From("information_schema.sequences").
			OrderBy("sequence_schema", "sequence_name")
		b = filterSchemaColumn(b, p.Schema, "sequence_schema")
		return paginate(b, limit, offset), nil

	case "constraint":
		b := catalogBuilder.Select("constraint_schema", "constraint_name", "table_name", "constraint_type").
			From("information_schema.table_constraints").
			OrderBy("constraint_schema", "constraint_name")
		b = filterSchemaColumn(b, p.Schema, "constraint_schema")
		if p.Table != "" {
			b = b.Where(sq.Eq{"table_name": p.Table})
		}
		return paginate(b, limit, offset), nil

	default:
		return sq.SelectBuilder{}, gatewayerr.Newf(gatewayerr.NotImplemented, "schema.list does not support target %q", p.Target)
	}
}

func filterSchema(b sq.SelectBuilder, schema string) sq.SelectBuilder {
	return filterSchemaColumn(b, schema, "table_schema")
}

func filterSchemaColumn(b sq.SelectBuilder, schema, column string) sq.SelectBuilder {
	if schema == "" {
		return b
	}
	return b.Where(sq.Eq{column: schema})
}

func paginate(b sq.SelectBuilder, limit, offset int) sq.SelectBuilder {
	b = b.Limit(uint64(limit))
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	return b
}

// DescribeParams is schema.describe's parameter shape.
type DescribeParams struct {
	Target  string `json:"target" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Schema  string `json:"schema"`
	Session string `json:"session_id"`
}

func (p *DescribeParams) SessionID() string { return p.Session }

var _ dispatch.SessionAware = (*DescribeParams)(nil)

// DescribeResult is schema.describe's result for target == "table".
type DescribeResult struct {
	Columns []ColumnInfo `json:"columns"`
	Indexes []IndexInfo  `json:"indexes"`
}

// ColumnInfo is one row of a described table's column list.
type ColumnInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// IndexInfo is one row of a described table's index list.
type IndexInfo struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Describe returns columns and indexes for target == "table"; other
// targets are NotImplemented. When session_id is present,
// resolution routes through that session so a caller can describe a
// table it just created but not yet committed.
func Describe(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*DescribeParams)
	if p.Target != "table" {
		return nil, gatewayerr.Newf(gatewayerr.NotImplemented, "schema.describe does not support target %q", p.Target)
	}

	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}

	colBuilder := catalogBuilder.Select("column_name", "data_type", "is_nullable", "column_default").
		From("information_schema.columns").
		Where(sq.Eq{"table_name": p.Name}).
		OrderBy("ordinal_position")
	if p.Schema != "" {
		colBuilder = colBuilder.Where(sq.Eq{"table_schema": p.Schema})
	}
	colSQL, colArgs, err := colBuilder.ToSql()
	if err != nil {
		return nil, gatewayerr.Wrap(err, gatewayerr.Internal, "failed to build column query")
	}
	colRes, err := exec.Execute(ctx, colSQL, colArgs, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}

	idxBuilder := catalogBuilder.Select("indexname", "indexdef").
		From("pg_catalog.pg_indexes").
		Where(sq.Eq{"tablename": p.Name}).
		OrderBy("indexname")
	if p.Schema != "" {
		idxBuilder = idxBuilder.Where(sq.Eq{"schemaname": p.Schema})
	}
	idxSQL, idxArgs, err := idxBuilder.ToSql()
	if err != nil {
		return nil, gatewayerr.Wrap(err, gatewayerr.Internal, "failed to build index query")
	}
	idxRes, err := exec.Execute(ctx, idxSQL, idxArgs, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}

	columns := make([]ColumnInfo, 0, len(colRes.Rows))
	for _, row := range colRes.Rows {
		col := ColumnInfo{
			Name:     stringField(row, "column_name"),
			Type:     stringField(row, "data_type"),
			Nullable: stringField(row, "is_nullable") == "YES",
		}
		if dv, ok := row["column_default"].(string); ok && dv != "" {
			col.DefaultValue = &dv
		}
		columns = append(columns, col)
	}

	indexes := make([]IndexInfo, 0, len(idxRes.Rows))
	for _, row := range idxRes.Rows {
		indexes = append(indexes, IndexInfo{
			Name:       stringField(row, "indexname"),
			Definition: stringField(row, "indexdef"),
		})
	}

	return DescribeResult{Columns: columns, Indexes: indexes}, nil
}

func stringField(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// DDLOptions carries the optional modifiers create/alter/drop accept.
type DDLOptions struct {
	IfExists    bool `json:"if_exists"`
	IfNotExists bool `json:"if_not_exists"`
	Cascade     bool `json:"cascade"`
}

// DDLParams is the shared parameter shape for schema.create/alter/drop.
type DDLParams struct {
	Target         string     `json:"target" validate:"required,oneof=table view function trigger sequence"`
	Name           string     `json:"name" validate:"required"`
	Schema         string     `json:"schema"`
	Definition     string     `json:"definition"`
	Options        DDLOptions `json:"options"`
	Session        string     `json:"session_id"`
	AutocommitFlag bool       `json:"autocommit"`
}

func (p *DDLParams) SessionID() string { return p.Session }
func (p *DDLParams) Autocommit() bool  { return p.AutocommitFlag }

var (
	_ dispatch.SessionAware    = (*DDLParams)(nil)
	_ dispatch.AutocommitAware = (*DDLParams)(nil)
)

func qualifiedName(schema, name string) (string, error) {
	quotedName, err := sanitize.Identifier(name)
	if err != nil {
		return "", err
	}
	if schema == "" {
		return quotedName, nil
	}
	quotedSchema, err := sanitize.Identifier(schema)
	if err != nil {
		return "", err
	}
	return quotedSchema + "." + quotedName, nil
}

// Create issues CREATE <target> [IF NOT EXISTS] <name> <definition>.
// definition is passed through verbatim — column definitions are too
// complex to safely reparse, and the caller is trusted; only name and
// schema go through the Sanitizer.
func Create(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*DDLParams)
	ident, err := qualifiedName(p.Schema, p.Name)
	if err != nil {
		return nil, err
	}

	sql := "CREATE " + p.Target + " "
	if p.Options.IfNotExists {
		sql += "IF NOT EXISTS "
	}
	sql += ident
	if p.Definition != "" {
		sql += " " + p.Definition
	}

	return runDDL(ctx, hctx, p, sql)
}

// Alter issues ALTER <target> <name> <definition>.
func Alter(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*DDLParams)
	ident, err := qualifiedName(p.Schema, p.Name)
	if err != nil {
		return nil, err
	}

	sql := "ALTER " + p.Target + " " + ident
	if p.Definition != "" {
		sql += " " + p.Definition
	}

	return runDDL(ctx, hctx, p, sql)
}

// Drop issues DROP <target> [IF EXISTS] <name> [CASCADE].
func Drop(ctx context.Context, hctx *dispatch.Context, rawParams any) (any, error) {
	p := rawParams.(*DDLParams)
	ident, err := qualifiedName(p.Schema, p.Name)
	if err != nil {
		return nil, err
	}

	sql := "DROP " + p.Target + " "
	if p.Options.IfExists {
		sql += "IF EXISTS "
	}
	sql += ident
	if p.Options.Cascade {
		sql += " CASCADE"
	}

	return runDDL(ctx, hctx, p, sql)
}

func runDDL(ctx context.Context, hctx *dispatch.Context, p *DDLParams, sql string) (any, error) {
	exec, err := hctx.Resolver.Resolve(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(ctx, sql, nil, executor.Options{})
	if err != nil {
		return nil, classifyDBError(err)
	}
	return resultFrom(res), nil
}
