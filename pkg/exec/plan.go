package exec

import (
	"fmt"

	"github.com/nornic/gqlcore/pkg/ast"
	"github.com/nornic/gqlcore/pkg/planner"
	"github.com/nornic/gqlcore/pkg/querycache"
)

// statistics snapshots the current graph's shape for the planner (spec.md
// §4.3's Statistics): cheap to recompute per statement since it only walks
// indices graphcache.Cache already holds in memory.
func (c *Context) statistics() *planner.Statistics {
	stats := planner.NewStatistics()
	nodes := c.Graph.AllNodes()
	stats.TotalNodes = int64(len(nodes))
	for _, n := range nodes {
		for _, l := range n.Labels {
			stats.NodeCounts[l]++
		}
	}
	edges := c.Graph.AllEdges()
	stats.TotalEdges = int64(len(edges))
	for _, e := range edges {
		stats.EdgeCounts[e.Label]++
	}
	if stats.TotalNodes > 0 {
		stats.AverageDegree = float64(stats.TotalEdges*2) / float64(stats.TotalNodes)
	}
	return stats
}

// patternLogical builds the logical plan for one PatternPart: a NodeScan
// root followed by one Expand per edge hop, the shape pkg/planner.Build
// expects.
func patternLogical(part ast.PatternPart) *planner.Logical {
	l := &planner.Logical{Op: planner.OpNodeScan, Labels: part.Nodes[0].Labels, Variable: part.Nodes[0].Variable}
	for i, ep := range part.Edges {
		l = &planner.Logical{
			Op:      planner.OpExpand,
			Input:   l,
			FromVar: part.Nodes[i].Variable,
			ToVar:   part.Nodes[i+1].Variable,
			EdgeVar: ep.Variable,
			Dir:     edgeDirection(ep.Direction),
		}
	}
	return l
}

func edgeDirection(d ast.EdgeDirection) planner.Direction {
	switch d {
	case ast.DirIncoming:
		return planner.DirIncoming
	case ast.DirBoth:
		return planner.DirBoth
	default:
		return planner.DirOutgoing
	}
}

func patternVariables(part ast.PatternPart) []string {
	vars := make([]string, 0, len(part.Nodes)+len(part.Edges))
	for _, n := range part.Nodes {
		if n.Variable != "" {
			vars = append(vars, n.Variable)
		}
	}
	for _, e := range part.Edges {
		if e.Variable != "" {
			vars = append(vars, e.Variable)
		}
	}
	return vars
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// planPatternOrder implements spec.md §4.1 step 4 for one comma-separated
// MATCH pattern list: "compute plan_cache_key ... on hit reuse the
// physical plan, on miss build logical plan -> optimize -> pick physical
// plan -> cache". clauseIndex distinguishes multiple MATCH clauses within
// the same statement text so they don't collide on one cache key.
//
// A single pattern or more than planner.OptimizePatterns' documented
// [2,10] range needs no combining decision and always runs left to right,
// matching OptimizePatterns' own Cartesian/identity-order fallback for
// those counts — so no plan is built or cached for them.
func (c *Context) planPatternOrder(clauseIndex int, parts []ast.PatternPart) []int {
	if len(parts) < 2 || len(parts) > 10 || c.Plans == nil || c.CostModel == nil {
		return identityOrder(len(parts))
	}

	key := querycache.PlanCacheKey{
		QueryHash:         querycache.HashQueryText(c.QueryText),
		SchemaVersion:     c.SchemaVersion,
		OptimizationLevel: c.OptimizationLevel,
		Hints:             []string{fmt.Sprintf("clause:%d", clauseIndex)},
	}

	if entry, ok := c.Plans.Get(key); ok && entry.Optimization != nil {
		return entry.Optimization.Order
	}

	stats := c.statistics()
	logicals := make([]*planner.Logical, len(parts))
	patterns := make([]planner.Pattern, len(parts))
	for i, part := range parts {
		logicals[i] = patternLogical(part)
		physical := planner.Build(logicals[i], stats, c.CostModel)
		patterns[i] = planner.Pattern{Variables: patternVariables(part), Plan: logicals[i], Rows: physical.RowCount()}
	}

	opt := planner.OptimizePatterns(patterns, c.CostModel)

	physical := planner.Build(logicals[0], stats, c.CostModel)
	trace := planner.Explain(physical)
	c.Plans.Put(key, &querycache.PlanEntry{
		Logical:       logicals[0],
		Physical:      physical,
		Trace:         &trace,
		Optimization:  &opt,
		SchemaVersion: c.SchemaVersion,
	})

	return opt.Order
}
