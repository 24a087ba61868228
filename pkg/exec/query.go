package exec

import (
	"sort"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/functions"
	"github.com/nornic/gqlcore/pkg/value"
)

// Query runs a full DQL/DML pipeline (ast.Query) and produces its projected
// result. Every QueryPart runs in sequence against a materialized row set —
// gqlcore never streams rows across a WITH boundary (spec.md §4.5's
// materializing pipeline), so an aggregate in one part always sees every row
// its predecessors produced.
func (c *Context) Query(q *ast.Query) (*Result, error) {
	rows := []Row{{}}

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

	total := 0
	for range rows {
		total++
	}
	return &Result{RowsAffected: total}, nil
}

func (c *Context) runPart(rows []Row, part ast.QueryPart) ([]Row, error) {
	var err error

	for _, rc := range part.Reads {
		rows, err = c.runReadingClause(rows, rc)
		if err != nil {
			return nil, err
		}
	}

	for _, uw := range part.Unwinds {
		rows, err = c.runUnwind(rows, uw)
		if err != nil {
			return nil, err
		}
	}

	for _, ins := range part.Inserts {
		rows, err = c.runInsert(rows, ins)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range part.Sets {
		rows, err = c.runSet(rows, s)
		if err != nil {
			return nil, err
		}
	}

	for _, rm := range part.Removes {
		rows, err = c.runRemove(rows, rm)
		if err != nil {
			return nil, err
		}
	}

	for _, del := range part.Deletes {
		rows, err = c.runDelete(rows, del)
		if err != nil {
			return nil, err
		}
	}

	if part.With != nil {
		return c.rowsFromProjection(rows, part.With)
	}

	return rows, nil
}

// runReadingClause applies one MATCH/OPTIONAL MATCH. MATCH drops rows that
// fail to extend or fail WHERE; OPTIONAL MATCH keeps the original row with
// every pattern variable bound to null when no extension exists, instead of
// dropping it (spec.md §8's OPTIONAL MATCH boundary behavior).
//
// A multi-pattern clause (comma-separated MATCH patterns) extends rows in
// the order pkg/planner's pattern optimizer picked (spec.md §4.3), not
// necessarily the order they were written in — planPatternOrder consults
// and fills the plan cache (spec.md §4.1 step 4).
func (c *Context) runReadingClause(rows []Row, rc ast.ReadingClause) ([]Row, error) {
	clauseIndex := c.clauseSeq
	c.clauseSeq++
	order := c.planPatternOrder(clauseIndex, rc.Patterns)

	var out []Row
	for _, row := range rows {
		matched := []Row{row}
		for _, idx := range order {
			part := rc.Patterns[idx]
			var err error
			matched, err = c.matchPattern(matched, part)
			if err != nil {
				return nil, err
			}
			if len(matched) == 0 {
				break
			}
		}

		if rc.Where != nil {
			filtered := matched[:0]
			for _, m := range matched {
				v, err := c.eval(m, rc.Where)
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					filtered = append(filtered, m)
				}
			}
			matched = filtered
		}

		if len(matched) == 0 {
			if rc.Optional {
				out = append(out, nullFillPattern(row, rc.Patterns))
			}
			continue
		}
		out = append(out, matched...)
	}
	return out, nil
}

func nullFillPattern(row Row, patterns []ast.PatternPart) Row {
	r := cloneRow(row)
	for _, part := range patterns {
		if part.PathVariable != "" {
			r[part.PathVariable] = value.Null()
		}
		for _, n := range part.Nodes {
			if n.Variable != "" {
				if _, ok := r[n.Variable]; !ok {
					r[n.Variable] = value.Null()
				}
			}
		}
		for _, e := range part.Edges {
			if e.Variable != "" {
				if _, ok := r[e.Variable]; !ok {
					r[e.Variable] = value.Null()
				}
			}
		}
	}
	return r
}

func (c *Context) runUnwind(rows []Row, uw ast.UnwindClause) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		v, err := c.eval(row, uw.Expr)
		if err != nil {
			return nil, err
		}
		items, ok := v.AsList()
		if !ok {
			if v.IsNull() {
				continue
			}
			items = []value.Value{v}
		}
		for _, item := range items {
			r := cloneRow(row)
			r[uw.Variable] = item
			out = append(out, r)
		}
	}
	return out, nil
}

// rowsFromProjection re-derives the row set a WITH clause should hand its
// successor QueryPart: the projected columns become the new, and only,
// bound variables (WITH resets scope, per the language's own semantics).
func (c *Context) rowsFromProjection(rows []Row, w *ast.WithClause) ([]Row, error) {
	isAgg := false
	for _, item := range w.Items {
		if call, ok := item.Expr.(*ast.FunctionCallExpr); ok && c.Functions.IsAggregateName(call.Name) {
			isAgg = true
			break
		}
	}

	if !isAgg {
		out := make([]Row, 0, len(rows))
		for _, row := range rows {
			projected, err := c.projectOne(row, w.Items)
			if err != nil {
				return nil, err
			}
			if w.Where != nil {
				v, err := c.eval(projected, w.Where)
				if err != nil {
					return nil, err
				}
				if !truthy(v) {
					continue
				}
			}
			out = append(out, projected)
		}
		return applyOrderSkipLimitRows(out, w.OrderBy, w.Skip, w.Limit, c)
	}

	grouped, err := c.aggregateRows(rows, w.Items)
	if err != nil {
		return nil, err
	}
	if w.Where != nil {
		filtered := grouped[:0]
		for _, row := range grouped {
			v, err := c.eval(row, w.Where)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				filtered = append(filtered, row)
			}
		}
		grouped = filtered
	}
	return applyOrderSkipLimitRows(grouped, w.OrderBy, w.Skip, w.Limit, c)
}

func (c *Context) projectOne(row Row, items []ast.ProjectionItem) (Row, error) {
	out := make(Row, len(items))
	for _, item := range items {
		v, err := c.eval(row, item.Expr)
		if err != nil {
			return nil, err
		}
		out[projectionName(item)] = v
	}
	return out, nil
}

func projectionName(item ast.ProjectionItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if v, ok := item.Expr.(*ast.VariableExpr); ok {
		return v.Name
	}
	return "?column?"
}

// aggregateRows groups rows by every non-aggregate projection item and
// folds each group through the aggregate items' accumulators. Zero input
// rows still synthesize exactly one output group so that, e.g.,
// "RETURN count(x)" over an empty match yields a single row with c=0
// rather than an empty result set.
func (c *Context) aggregateRows(rows []Row, items []ast.ProjectionItem) ([]Row, error) {
	groupExprs := make([]ast.ProjectionItem, 0, len(items))
	aggExprs := make([]ast.ProjectionItem, 0, len(items))
	for _, item := range items {
		if call, ok := item.Expr.(*ast.FunctionCallExpr); ok && c.Functions.IsAggregateName(call.Name) {
			aggExprs = append(aggExprs, item)
		} else {
			groupExprs = append(groupExprs, item)
		}
	}

	type group struct {
		keyVals []value.Value
		accs    []aggAccumulator
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	ensureGroup := func(row Row) (*group, error) {
		keyVals := make([]value.Value, len(groupExprs))
		var keyStr string
		for i, g := range groupExprs {
			v, err := c.eval(row, g.Expr)
			if err != nil {
				return nil, err
			}
			keyVals[i] = v
			keyStr += v.TypeName() + ":" + v.String() + "|"
		}
		g, ok := groups[keyStr]
		if !ok {
			accs := make([]aggAccumulator, len(aggExprs))
			for i, a := range aggExprs {
				call := a.Expr.(*ast.FunctionCallExpr)
				accs[i] = aggAccumulator{
					agg:  c.Functions.NewAggregate(call.Name),
					call: call,
				}
			}
			g = &group{keyVals: keyVals, accs: accs}
			groups[keyStr] = g
			order = append(order, keyStr)
		}
		return g, nil
	}

	if len(rows) == 0 {
		accs := make([]aggAccumulator, len(aggExprs))
		for i, a := range aggExprs {
			call := a.Expr.(*ast.FunctionCallExpr)
			accs[i] = aggAccumulator{agg: c.Functions.NewAggregate(call.Name), call: call}
		}
		return []Row{buildAggregateRow(nil, groupExprs, accs, aggExprs)}, nil
	}

	for _, row := range rows {
		g, err := ensureGroup(row)
		if err != nil {
			return nil, err
		}
		for i := range g.accs {
			var v value.Value = value.Number(1) // count(*) has no argument
			if len(g.accs[i].call.Args) > 0 {
				var err error
				v, err = c.eval(row, g.accs[i].call.Args[0])
				if err != nil {
					return nil, err
				}
			}
			g.accs[i].agg.Add(v)
		}
	}

	out := make([]Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, buildAggregateRow(g.keyVals, groupExprs, g.accs, aggExprs))
	}
	return out, nil
}

type aggAccumulator struct {
	agg  functions.Aggregate
	call *ast.FunctionCallExpr
}

func buildAggregateRow(keyVals []value.Value, groupExprs []ast.ProjectionItem, accs []aggAccumulator, aggExprs []ast.ProjectionItem) Row {
	row := make(Row, len(groupExprs)+len(aggExprs))
	for i, g := range groupExprs {
		if i < len(keyVals) {
			row[projectionName(g)] = keyVals[i]
		} else {
			row[projectionName(g)] = value.Null()
		}
	}
	for i, a := range aggExprs {
		row[projectionName(a)] = accs[i].agg.Result()
	}
	return row
}

// project implements a terminal RETURN (or a non-aggregating WITH's final
// shape): projection, DISTINCT, ORDER BY, SKIP, LIMIT, materialized into the
// coordinator-facing Result.
func (c *Context) project(rows []Row, items []ast.ProjectionItem, distinct bool, order []ast.OrderItem, skip, limit *int64) (*Result, error) {
	isAgg := false
	for _, item := range items {
		if call, ok := item.Expr.(*ast.FunctionCallExpr); ok && c.Functions.IsAggregateName(call.Name) {
			isAgg = true
			break
		}
	}

	var projected []Row
	if isAgg {
		g, err := c.aggregateRows(rows, items)
		if err != nil {
			return nil, err
		}
		projected = g
	} else {
		for _, row := range rows {
			p, err := c.projectOne(row, items)
			if err != nil {
				return nil, err
			}
			projected = append(projected, p)
		}
	}

	cols := make([]string, len(items))
	for i, item := range items {
		cols[i] = projectionName(item)
	}

	projected, err := applyOrderSkipLimitRows(projected, order, skip, limit, c)
	if err != nil {
		return nil, err
	}

	if distinct {
		projected = distinctRows(projected, cols)
	}

	out := make([][]value.Value, len(projected))
	for i, row := range projected {
		vals := make([]value.Value, len(cols))
		for j, col := range cols {
			vals[j] = row[col]
		}
		out[i] = vals
	}
	return &Result{Columns: cols, Rows: out, RowsAffected: len(out)}, nil
}

func distinctRows(rows []Row, cols []string) []Row {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := ""
		for _, col := range cols {
			key += row[col].String() + "|"
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out
}

func applyOrderSkipLimitRows(rows []Row, order []ast.OrderItem, skip, limit *int64, c *Context) ([]Row, error) {
	if len(order) > 0 {
		var sortErr error
		sort.SliceStable(rows, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			for _, o := range order {
				vi, err := c.eval(rows[i], o.Expr)
				if err != nil {
					sortErr = err
					return false
				}
				vj, err := c.eval(rows[j], o.Expr)
				if err != nil {
					sortErr = err
					return false
				}
				if value.Equal(vi, vj) {
					continue
				}
				less := valueLess(vi, vj)
				if o.Descending {
					return !less
				}
				return less
			}
			return false
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	if skip != nil {
		n := int(*skip)
		if n >= len(rows) {
			rows = nil
		} else if n > 0 {
			rows = rows[n:]
		}
	}
	if limit != nil {
		n := int(*limit)
		if n < len(rows) {
			rows = rows[:n]
		}
	}
	return rows, nil
}

func valueLess(a, b value.Value) bool {
	if an, ok := a.AsNumber(); ok {
		if bn, ok := b.AsNumber(); ok {
			return an < bn
		}
	}
	if as, ok := a.AsString(); ok {
		if bs, ok := b.AsString(); ok {
			return as < bs
		}
	}
	return false
}
