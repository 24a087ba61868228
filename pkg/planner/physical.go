package planner

// PhysicalOp discriminates physical executor choices. Most mirror their
// logical counterpart 1:1; scans and joins fan out into multiple physical
// alternatives the cost model picks between.
type PhysicalOp string

const (
	PhysNodeSeqScan     PhysicalOp = "NodeSeqScan"
	PhysNodeIndexScan   PhysicalOp = "NodeIndexScan"
	PhysEdgeSeqScan     PhysicalOp = "EdgeSeqScan"
	PhysIndexedExpand   PhysicalOp = "IndexedExpand"
	PhysHashExpand      PhysicalOp = "HashExpand"
	PhysFilter          PhysicalOp = "Filter"
	PhysProject         PhysicalOp = "Project"
	PhysHashJoin        PhysicalOp = "HashJoin"
	PhysNestedLoopJoin  PhysicalOp = "NestedLoopJoin"
	PhysSortMergeJoin   PhysicalOp = "SortMergeJoin"
	PhysIndexJoin       PhysicalOp = "IndexJoin"
	PhysInMemorySort    PhysicalOp = "InMemorySort"
	PhysExternalSort    PhysicalOp = "ExternalSort"
	PhysLimit           PhysicalOp = "Limit"
	PhysAggregate       PhysicalOp = "Aggregate"
	PhysPathTraversal   PhysicalOp = "PathTraversal"
	PhysGraphIndexScan  PhysicalOp = "GraphIndexScan"
	PhysSingleRow       PhysicalOp = "SingleRow"
)

// Physical is one node of the physical plan: a chosen executor strategy
// plus estimated rows/cost (spec.md §4.3 "each node carries estimated_rows
// and estimated_cost").
type Physical struct {
	Op            PhysicalOp
	EstimatedRows int64
	Cost          CostEstimate

	Labels   []string
	Variable string
	FromVar  string
	ToVar    string
	EdgeVar  string
	Dir      Direction

	Selectivity float64
	Predicate   *Predicate
	Columns     []string

	JoinAlg JoinAlgorithm
	Build   *Physical
	Probe   *Physical
	Left    *Physical
	Right   *Physical

	SortKeys []SortKey
	Count    int64
	SkipRows int64

	GroupBy    []string
	Aggregates []AggregateExpr

	PathType string
	Elements []PathElement

	Input *Physical
}

// RowCount returns the node's own estimated row count, used by parent
// nodes' cost formulas (mirrors PhysicalNode::get_row_count in
// original_source).
func (p *Physical) RowCount() int64 {
	if p == nil {
		return 0
	}
	return p.EstimatedRows
}

// Children mirrors Logical.Children for the physical tree.
func (p *Physical) Children() []*Physical {
	if p == nil {
		return nil
	}
	switch p.Op {
	case PhysHashJoin, PhysIndexJoin:
		return []*Physical{p.Build, p.Probe}
	case PhysNestedLoopJoin, PhysSortMergeJoin:
		return []*Physical{p.Left, p.Right}
	case PhysNodeSeqScan, PhysNodeIndexScan, PhysEdgeSeqScan, PhysGraphIndexScan, PhysSingleRow:
		return nil
	default:
		if p.Input != nil {
			return []*Physical{p.Input}
		}
		return nil
	}
}
