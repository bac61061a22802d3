// Package querysql compiles queryir queries to parameterized SQLite SQL
// over the object store's objects table.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
)

// Columns is the column list every compiled select returns, in scan order.
const Columns = "id, entity, fields, created_at, updated_at, seq"

// SQLCompiler compiles queryir to parameterized SQL for SQLite.
//
// All queries end with "id COLLATE BINARY ASC" so results are totally
// ordered. Values and JSON paths are always bound as parameters.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to a SELECT returning Columns.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	sel, err := selectOf(q)
	if err != nil {
		return "", nil, err
	}

	where, params, err := c.compileWhere(sel)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + Columns + " FROM objects WHERE " + where)

	sb.WriteString(" ORDER BY ")
	for _, key := range sel.Sort {
		expr, exprParams := fieldExpr(key.Field)
		params = append(params, exprParams...)
		sb.WriteString(expr)
		if key.Descending {
			sb.WriteString(" DESC, ")
		} else {
			sb.WriteString(" ASC, ")
		}
	}
	sb.WriteString("id COLLATE BINARY ASC")

	if sel.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, sel.Limit)
	}
	return sb.String(), params, nil
}

// CompileCount converts a query to a SELECT COUNT(*). Sort and Limit are
// ignored.
func (c *SQLCompiler) CompileCount(q queryir.Query) (string, []any, error) {
	sel, err := selectOf(q)
	if err != nil {
		return "", nil, err
	}
	where, params, err := c.compileWhere(sel)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM objects WHERE " + where, params, nil
}

func selectOf(q queryir.Query) (queryir.Select, error) {
	if q == nil {
		return queryir.Select{}, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return queryir.Select{}, err
	}
	switch query := q.(type) {
	case queryir.Select:
		return query, nil
	case *queryir.Select:
		return *query, nil
	}
	return queryir.Select{}, fmt.Errorf("unsupported query type: %T", q)
}

func (c *SQLCompiler) compileWhere(sel queryir.Select) (string, []any, error) {
	where := "entity = ?"
	params := []any{sel.Entity}
	if sel.Filter == nil {
		return where, params, nil
	}

	filterSQL, filterParams, err := c.compilePredicate(sel.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return where + " AND " + filterSQL, append(params, filterParams...), nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.In:
		return c.compileIn(pred)
	case *queryir.In:
		return c.compileIn(*pred)
	case queryir.IDIn:
		return compileIDIn(pred)
	case *queryir.IDIn:
		return compileIDIn(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	}
	return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	expr, params := fieldExpr(eq.Field)
	if eq.Value == nil || ir.IsNull(eq.Value) {
		return expr + " IS NULL", params, nil
	}

	param, err := ValueParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return expr + " = ?", append(params, param), nil
}

func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "0 = 1", nil, nil
	}

	expr, params := fieldExpr(in.Field)
	placeholders := make([]string, len(in.Values))
	for i, v := range in.Values {
		param, err := ValueParam(v)
		if err != nil {
			return "", nil, fmt.Errorf("convert value %d: %w", i, err)
		}
		placeholders[i] = "?"
		params = append(params, param)
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ", ")), params, nil
}

func compileIDIn(in queryir.IDIn) (string, []any, error) {
	if len(in.IDs) == 0 {
		return "0 = 1", nil, nil
	}
	placeholders := make([]string, len(in.IDs))
	params := make([]any, len(in.IDs))
	for i, id := range in.IDs {
		placeholders[i] = "?"
		params[i] = id
	}
	return fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ", ")), params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// fieldExpr returns the SQL expression reading field and its parameters.
func fieldExpr(field string) (string, []any) {
	switch field {
	case queryir.FieldID:
		return "id", nil
	case queryir.FieldCreated:
		return "created_at", nil
	case queryir.FieldUpdated:
		return "updated_at", nil
	}
	return "json_extract(fields, ?)", []any{JSONPath(field)}
}

// JSONPath returns the SQLite JSON path addressing a top-level field.
// The label is always quoted so names containing dots stay one segment.
func JSONPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// ValueParam converts an IRValue to the parameter json_extract compares
// against. Composite and tagged values compare by their canonical JSON
// text, which is how json_extract returns them.
func ValueParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRNull, nil:
		return nil, nil
	case ir.IRTime, ir.IRDecimal, ir.IRArray, ir.IRObject:
		data, err := ir.MarshalCanonical(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
}
