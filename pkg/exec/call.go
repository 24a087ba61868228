package exec

import (
	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/value"
)

// Call invokes a system or user procedure (spec.md §6's system procedure
// list). show_session has no graph-bound arguments of its own; the running
// session id is injected as its implicit first argument here rather than
// appearing in the query text, since CALL show_session() takes none.
func (c *Context) Call(stmt *ast.CallStatement) (*Result, error) {
	if stmt.Name == "gql.explain" || stmt.Name == "system.explain" {
		return c.callExplain(stmt)
	}
	if !c.Functions.IsProcedureName(stmt.Name) {
		return nil, errs.Runtime("unknown procedure %q", stmt.Name)
	}

	args := make([]value.Value, len(stmt.Args))
	row := Row{}
	for i, a := range stmt.Args {
		v, err := c.eval(row, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if stmt.Name == "gql.show_session" || stmt.Name == "system.show_session" {
		args = append([]value.Value{value.String(c.SessionID)}, args...)
	}

	cols, rows, err := c.Functions.CallProcedure(c.ProcCtx, stmt.Name, args)
	if err != nil {
		return nil, err
	}

	if len(stmt.Yield) > 0 {
		cols, rows = yieldColumns(cols, rows, stmt.Yield)
	}

	if stmt.Query != nil {
		return c.runCallContinuation(cols, rows, stmt.Query)
	}

	return &Result{Columns: cols, Rows: rows, RowsAffected: len(rows)}, nil
}

func yieldColumns(cols []string, rows [][]value.Value, yield []string) ([]string, [][]value.Value) {
	idx := make([]int, 0, len(yield))
	for _, y := range yield {
		for i, c := range cols {
			if c == y {
				idx = append(idx, i)
				break
			}
		}
	}
	outRows := make([][]value.Value, len(rows))
	for i, row := range rows {
		vals := make([]value.Value, len(idx))
		for j, ci := range idx {
			vals[j] = row[ci]
		}
		outRows[i] = vals
	}
	return yield, outRows
}

// runCallContinuation feeds a CALL's YIELDed rows into a trailing query
// pipeline ("CALL list_graphs() YIELD path WHERE path STARTS WITH ...").
func (c *Context) runCallContinuation(cols []string, procRows [][]value.Value, q *ast.Query) (*Result, error) {
	rows := make([]Row, len(procRows))
	for i, vals := range procRows {
		r := make(Row, len(cols))
		for j, col := range cols {
			r[col] = vals[j]
		}
		rows[i] = r
	}

	for _, part := range q.Parts {
		var err error
		rows, err = c.runPart(rows, part)
		if err != nil {
			return nil, err
		}
	}

	if q.Return != nil {
		return c.project(rows, q.Return.Items, q.Return.Distinct, q.Return.OrderBy, q.Return.Skip, q.Return.Limit)
	}
	return &Result{RowsAffected: len(rows)}, nil
}
