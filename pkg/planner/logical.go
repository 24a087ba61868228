// Package planner builds and costs query plans (spec.md §4.3): a logical
// plan tree of relational-plus-graph operators, a physical mirror carrying
// executor choice and estimated rows/cost, a weighted cost model, and the
// pattern-optimization pass that turns comma-separated MATCH patterns into
// something better than a Cartesian product.
//
// Grounded on original_source/graphlite/src/plan/cost.rs (cost weights and
// per-operator formulas, carried over almost verbatim) and
// original_source/graphlite/src/plan/pattern_optimization/*.rs (shared
// variable analysis, connectivity graph, path/join/cartesian selection).
package planner

// JoinAlgorithm names the physical join strategy (spec.md §4.3).
type JoinAlgorithm string

const (
	JoinHash       JoinAlgorithm = "HashJoin"
	JoinNestedLoop JoinAlgorithm = "NestedLoop"
	JoinSortMerge  JoinAlgorithm = "SortMergeJoin"
	JoinIndexNL    JoinAlgorithm = "IndexNestedLoop"
)

// Direction is an edge traversal direction for Expand.
type Direction string

const (
	DirOutgoing Direction = "OUTGOING"
	DirIncoming Direction = "INCOMING"
	DirBoth     Direction = "BOTH"
)

// LogicalOp discriminates the node kinds of a logical plan.
type LogicalOp string

const (
	OpNodeScan      LogicalOp = "NodeScan"
	OpEdgeScan      LogicalOp = "EdgeScan"
	OpExpand        LogicalOp = "Expand"
	OpFilter        LogicalOp = "Filter"
	OpProject       LogicalOp = "Project"
	OpJoin          LogicalOp = "Join"
	OpSort          LogicalOp = "Sort"
	OpLimit         LogicalOp = "Limit"
	OpAggregate     LogicalOp = "Aggregate"
	OpPathTraversal LogicalOp = "PathTraversal"
	OpSingleRow     LogicalOp = "SingleRow"
)

// Predicate is an opaque filter/join predicate; the planner only needs to
// know which variables it references for selectivity/cost purposes, so it
// stays a thin wrapper rather than a full expression AST node.
type Predicate struct {
	Text      string
	Variables []string
}

// Logical is one node of the logical plan tree.
type Logical struct {
	Op LogicalOp

	// NodeScan / EdgeScan
	Labels     []string
	Variable   string
	ScanFilter *Predicate

	// Expand
	FromVar string
	ToVar   string
	EdgeVar string
	Dir     Direction

	// Filter
	Where *Predicate

	// Project
	Columns []string

	// Join
	JoinAlg       JoinAlgorithm
	SharedVars    []string
	Left, Right   *Logical
	JoinPredicate *Predicate

	// Sort
	SortKeys []SortKey

	// Limit
	Count    int64
	SkipRows int64

	// Aggregate
	GroupBy    []string
	Aggregates []AggregateExpr

	// PathTraversal
	PathType string
	Elements []PathElement

	Input *Logical
}

type SortKey struct {
	Column     string
	Descending bool
}

type AggregateExpr struct {
	Func   string // count, sum, avg, min, max, collect
	Column string
	Alias  string
}

type PathElement struct {
	NodeVar string
	EdgeVar string
	Dir     Direction
	Labels  []string
}

// Children returns a Logical node's direct operands, for generic tree
// walks (statistics gathering, EXPLAIN rendering).
func (l *Logical) Children() []*Logical {
	if l == nil {
		return nil
	}
	switch l.Op {
	case OpJoin:
		return []*Logical{l.Left, l.Right}
	case OpNodeScan, OpEdgeScan, OpSingleRow:
		return nil
	default:
		if l.Input != nil {
			return []*Logical{l.Input}
		}
		return nil
	}
}
