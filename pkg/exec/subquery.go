package exec

import (
	"fmt"
	"strings"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/querycache"
	"github.com/nornic/gqlcore/pkg/value"
)

// evalExists evaluates EXISTS { <pattern> [WHERE ...] } (SPEC_FULL.md §13's
// supplemented subquery form): true iff the pattern extends the enclosing
// row at least once. Shared variable names correlate the subquery to its
// enclosing MATCH the same way a comma-separated pattern list does —
// matchPattern just extends a row seeded with the outer bindings.
//
// Results are memoized in c.Subqueries keyed on the subquery's own text
// hash plus whichever of the enclosing row's bindings the subquery actually
// references (stringified into QueryCacheKey.Parameters by
// correlationParameters/freeVariables), since a correlated subquery's
// answer depends on the query and the correlated bindings it's evaluated
// against, not the rest of the row (spec.md §4.2).
func (c *Context) evalExists(row Row, e *ast.ExistsSubqueryExpr) (value.Value, error) {
	subqueryHash := subqueryTextHash(e)
	params := correlationParameters(row, freeVariables(e))
	graphVersion := c.Graph.Version()
	// An uncorrelated subquery (no outer bindings in scope) has one answer
	// for the whole graph version, shared by every row and every session —
	// so it's looked up through the side index instead of a per-session,
	// per-row key (spec.md §4.2 "specialized side indices").
	uncorrelated := len(params) == 0

	if c.Subqueries != nil {
		if uncorrelated {
			if res, ok := c.Subqueries.Exists(subqueryHash, graphVersion); ok {
				return value.Boolean(res.Boolean), nil
			}
		} else if res, ok := c.Subqueries.Get(subqueryHash, querycache.QueryCacheKey{
			QueryHash:    subqueryHash,
			Parameters:   params,
			GraphVersion: graphVersion,
			UserContext:  c.SessionID,
		}); ok {
			return value.Boolean(res.Boolean), nil
		}
	}

	found, err := c.existsMatch(row, e)
	if err != nil {
		return value.Null(), err
	}

	if c.Subqueries != nil {
		key := querycache.QueryCacheKey{QueryHash: subqueryHash, Parameters: params, GraphVersion: graphVersion}
		if !uncorrelated {
			key.UserContext = c.SessionID
		}
		c.Subqueries.Put(subqueryHash, key, querycache.SubqueryResult{Kind: querycache.SubqueryBoolean, Boolean: found}, float64(len(e.Patterns)))
	}
	return value.Boolean(found), nil
}

// existsMatch runs the actual pattern/WHERE evaluation evalExists memoizes.
func (c *Context) existsMatch(row Row, e *ast.ExistsSubqueryExpr) (bool, error) {
	matched := []Row{cloneRow(row)}
	for _, part := range e.Patterns {
		var err error
		matched, err = c.matchPattern(matched, part)
		if err != nil {
			return false, err
		}
		if len(matched) == 0 {
			return false, nil
		}
	}
	if e.Where == nil {
		return len(matched) > 0, nil
	}
	for _, m := range matched {
		v, err := c.eval(m, e.Where)
		if err != nil {
			return false, err
		}
		if truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

// subqueryTextHash stands in for "the subquery's source text" (spec.md
// §4.2's subquery_hash): EXISTS subqueries aren't parsed from their own
// standalone text, so this renders the parsed pattern/WHERE deterministically
// instead of re-deriving the original substring.
func subqueryTextHash(e *ast.ExistsSubqueryExpr) uint64 {
	var sb strings.Builder
	for _, part := range e.Patterns {
		fmt.Fprintf(&sb, "%+v;", part)
	}
	if e.Where != nil {
		fmt.Fprintf(&sb, "%+v", e.Where)
	}
	return querycache.HashQueryText(sb.String())
}

// correlationParameters stringifies only the row bindings the subquery
// actually references (vars), so rows that differ solely in unrelated
// bound variables still collapse onto the same cache entry — and a fully
// uncorrelated subquery (vars empty) collapses onto exactly one entry for
// the whole query, regardless of how many outer rows evaluate it.
func correlationParameters(row Row, vars map[string]bool) map[string]string {
	params := make(map[string]string, len(vars))
	for name := range vars {
		if v, ok := row[name]; ok {
			params[name] = v.String()
		}
	}
	return params
}

// freeVariables collects the variable names e's pattern and WHERE clause
// reference, i.e. the row bindings its result can actually depend on.
func freeVariables(e *ast.ExistsSubqueryExpr) map[string]bool {
	vars := make(map[string]bool)
	for _, part := range e.Patterns {
		for _, n := range part.Nodes {
			if n.Variable != "" {
				vars[n.Variable] = true
			}
		}
		for _, ed := range part.Edges {
			if ed.Variable != "" {
				vars[ed.Variable] = true
			}
		}
	}
	collectExpressionVariables(e.Where, vars)
	return vars
}

// collectExpressionVariables walks expr recording every VariableExpr/
// PropertyAccessExpr name it finds into vars, descending into every
// Expression-shaped field the ast package defines.
func collectExpressionVariables(expr ast.Expression, vars map[string]bool) {
	switch e := expr.(type) {
	case nil:
	case *ast.VariableExpr:
		vars[e.Name] = true
	case *ast.PropertyAccessExpr:
		vars[e.Variable] = true
	case *ast.ListLiteralExpr:
		for _, item := range e.Items {
			collectExpressionVariables(item, vars)
		}
	case *ast.MapLiteralExpr:
		for _, v := range e.Entries {
			collectExpressionVariables(v, vars)
		}
	case *ast.FunctionCallExpr:
		for _, a := range e.Args {
			collectExpressionVariables(a, vars)
		}
	case *ast.BinaryExpr:
		collectExpressionVariables(e.Left, vars)
		collectExpressionVariables(e.Right, vars)
	case *ast.UnaryExpr:
		collectExpressionVariables(e.Operand, vars)
	case *ast.CaseExpr:
		collectExpressionVariables(e.Test, vars)
		for _, w := range e.Whens {
			collectExpressionVariables(w.Condition, vars)
			collectExpressionVariables(w.Result, vars)
		}
		collectExpressionVariables(e.Default, vars)
	case *ast.ExistsSubqueryExpr:
		for name := range freeVariables(e) {
			vars[name] = true
		}
	}
}
