package planner

import (
	"fmt"
	"strings"
)

// Trace is a human-readable rendering of a physical plan tree, returned
// alongside the plan so EXPLAIN can show it without re-deriving anything
// (SPEC_FULL.md §13 supplements EXPLAIN support the distilled spec didn't
// spell out but every cost-based planner needs for diagnosis).
type Trace struct {
	Lines []string
}

// Explain renders a physical plan depth-first, one line per node, each
// annotated with its estimated row count and weighted cost.
func Explain(p *Physical) Trace {
	var lines []string
	var walk func(n *Physical, depth int)
	walk = func(n *Physical, depth int) {
		if n == nil {
			return
		}
		indent := strings.Repeat("  ", depth)
		lines = append(lines, fmt.Sprintf("%s%s (rows=%d cost=%.4f)", indent, describe(n), n.EstimatedRows, n.Cost.TotalCost()))
		for _, child := range n.Children() {
			walk(child, depth+1)
		}
	}
	walk(p, 0)
	return Trace{Lines: lines}
}

func describe(p *Physical) string {
	switch p.Op {
	case PhysNodeSeqScan, PhysNodeIndexScan:
		return fmt.Sprintf("%s(%s:%s)", p.Op, p.Variable, strings.Join(p.Labels, "|"))
	case PhysIndexedExpand, PhysHashExpand:
		return fmt.Sprintf("%s(%s-[%s]->%s)", p.Op, p.FromVar, p.EdgeVar, p.ToVar)
	case PhysHashJoin, PhysIndexJoin, PhysNestedLoopJoin, PhysSortMergeJoin:
		return fmt.Sprintf("%s(%s)", p.Op, p.JoinAlg)
	default:
		return string(p.Op)
	}
}

func (t Trace) String() string {
	return strings.Join(t.Lines, "\n")
}
