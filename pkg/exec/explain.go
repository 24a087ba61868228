package exec

import (
	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/errs"
	"github.com/nornic/gqlcore/pkg/parser"
	"github.com/nornic/gqlcore/pkg/planner"
	"github.com/nornic/gqlcore/pkg/value"
)

// Explain builds the physical plan for every MATCH pattern in stmt.Query
// without running it, returning one row per rendered plan line
// (SPEC_FULL.md §13). It reuses planPatternOrder so the trace reflects the
// exact plan the pattern would get if the query actually ran — same plan
// cache entry, same cost model — rather than a separate, potentially
// diverging estimate.
func (c *Context) Explain(stmt *ast.ExplainStatement) (*Result, error) {
	model := c.CostModel
	if model == nil {
		model = planner.NewCostModel()
	}
	stats := c.statistics()
	var rows [][]value.Value

	emit := func(clause int, part ast.PatternPart) {
		logical := patternLogical(part)
		physical := planner.Build(logical, stats, model)
		trace := planner.Explain(physical)
		for _, line := range trace.Lines {
			rows = append(rows, []value.Value{value.Number(float64(clause)), value.String(line)})
		}
	}

	for _, part := range stmt.Query.Parts {
		for _, rc := range part.Reads {
			clauseIndex := c.clauseSeq
			c.clauseSeq++
			order := c.planPatternOrder(clauseIndex, rc.Patterns)
			for _, idx := range order {
				emit(clauseIndex, rc.Patterns[idx])
			}
		}
	}

	return &Result{Columns: []string{"clause", "plan"}, Rows: rows, RowsAffected: len(rows)}, nil
}

// callExplain backs CALL gql.explain(<query text>) (SPEC_FULL.md §13): it
// parses its single String argument as a query and runs the same planning
// path Explain uses for the EXPLAIN statement, so the two surfaces never
// diverge. It lives here rather than in the procedure registry because
// plan.go's machinery needs this Context's live graph/cost model/plan
// cache, not just the scalar arguments a ProcedureFunc receives.
func (c *Context) callExplain(stmt *ast.CallStatement) (*Result, error) {
	if len(stmt.Args) != 1 {
		return nil, errs.Runtime("gql.explain(query) expects exactly 1 argument, got %d", len(stmt.Args))
	}
	v, err := c.eval(Row{}, stmt.Args[0])
	if err != nil {
		return nil, err
	}
	text, ok := v.AsString()
	if !ok {
		return nil, errs.TypeMismatch("gql.explain(query): query must be a String")
	}

	parsed, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	q, ok := parsed.(*ast.Query)
	if !ok {
		return nil, errs.Unsupported("gql.explain only accepts a MATCH/RETURN query, got a %T", parsed)
	}

	res, err := c.Explain(&ast.ExplainStatement{Query: q})
	if err != nil {
		return nil, err
	}
	if len(stmt.Yield) > 0 {
		res.Columns, res.Rows = yieldColumns(res.Columns, res.Rows, stmt.Yield)
	}
	return res, nil
}
