package planner

// Build turns a logical plan into a physical plan, choosing an executor
// strategy at each node and filling in estimated rows/cost from stats.
// Scan and expand operators pick the indexed alternative whenever stats
// reports an index for the relevant label/property; joins pick Hash unless
// one side is tiny enough that NestedLoop is cheaper.
func Build(l *Logical, stats *Statistics, model *CostModel) *Physical {
	p := build(l, stats)
	cost := model.EstimateNodeCost(p, stats)
	p.Cost = cost
	return p
}

func build(l *Logical, stats *Statistics) *Physical {
	if l == nil {
		return nil
	}
	switch l.Op {
	case OpSingleRow:
		return &Physical{Op: PhysSingleRow, EstimatedRows: 1}

	case OpNodeScan:
		rows := estimateLabelRows(l.Labels, stats)
		if len(l.Labels) > 0 && hasAnyIndex(l.Labels[0], stats) {
			return &Physical{Op: PhysNodeIndexScan, Labels: l.Labels, Variable: l.Variable, EstimatedRows: rows, Predicate: l.ScanFilter}
		}
		return &Physical{Op: PhysNodeSeqScan, Labels: l.Labels, Variable: l.Variable, EstimatedRows: rows, Predicate: l.ScanFilter}

	case OpEdgeScan:
		rows := estimateEdgeLabelRows(l.Labels, stats)
		return &Physical{Op: PhysEdgeSeqScan, Labels: l.Labels, Variable: l.Variable, EstimatedRows: rows, Predicate: l.ScanFilter}

	case OpExpand:
		input := build(l.Input, stats)
		rows := expandRowEstimate(input.RowCount(), stats)
		op := PhysHashExpand
		if hasAnyIndex(l.ToVar, stats) {
			op = PhysIndexedExpand
		}
		return &Physical{Op: op, Input: input, FromVar: l.FromVar, ToVar: l.ToVar, EdgeVar: l.EdgeVar, Dir: l.Dir, EstimatedRows: rows}

	case OpFilter:
		input := build(l.Input, stats)
		sel := 0.5
		if l.Where != nil && len(l.Where.Variables) > 0 {
			sel = stats.PropertySelectivityOf(l.Where.Text)
		}
		rows := int64(float64(input.RowCount()) * sel)
		return &Physical{Op: PhysFilter, Input: input, Predicate: l.Where, Selectivity: sel, EstimatedRows: rows}

	case OpProject:
		input := build(l.Input, stats)
		return &Physical{Op: PhysProject, Input: input, Columns: l.Columns, EstimatedRows: input.RowCount()}

	case OpJoin:
		left := build(l.Left, stats)
		right := build(l.Right, stats)
		alg := chooseJoinAlgorithm(l.JoinAlg, left.RowCount(), right.RowCount(), l.SharedVars)
		rows := joinRowEstimate(left.RowCount(), right.RowCount(), alg)
		switch alg {
		case JoinHash, JoinIndexNL:
			return &Physical{Op: physOpForJoin(alg), Build: left, Probe: right, JoinAlg: alg, EstimatedRows: rows}
		default:
			return &Physical{Op: physOpForJoin(alg), Left: left, Right: right, JoinAlg: alg, EstimatedRows: rows}
		}

	case OpSort:
		input := build(l.Input, stats)
		op := PhysInMemorySort
		if input.RowCount() > inMemorySortRowLimit {
			op = PhysExternalSort
		}
		return &Physical{Op: op, Input: input, SortKeys: l.SortKeys, EstimatedRows: input.RowCount()}

	case OpLimit:
		input := build(l.Input, stats)
		rows := l.Count
		if input.RowCount() < rows {
			rows = input.RowCount()
		}
		return &Physical{Op: PhysLimit, Input: input, Count: l.Count, SkipRows: l.SkipRows, EstimatedRows: rows}

	case OpAggregate:
		input := build(l.Input, stats)
		rows := input.RowCount()
		if len(l.GroupBy) > 0 {
			rows = estimateGroupRows(rows)
		} else {
			rows = 1
		}
		return &Physical{Op: PhysAggregate, Input: input, GroupBy: l.GroupBy, Aggregates: l.Aggregates, EstimatedRows: rows}

	case OpPathTraversal:
		rows := estimatePathRows(l.Elements, stats)
		return &Physical{Op: PhysPathTraversal, PathType: l.PathType, FromVar: l.FromVar, ToVar: l.ToVar, Elements: l.Elements, EstimatedRows: rows}

	default:
		return &Physical{Op: PhysSingleRow, EstimatedRows: 1}
	}
}

const inMemorySortRowLimit = 100_000

func physOpForJoin(alg JoinAlgorithm) PhysicalOp {
	switch alg {
	case JoinHash:
		return PhysHashJoin
	case JoinSortMerge:
		return PhysSortMergeJoin
	case JoinIndexNL:
		return PhysIndexJoin
	default:
		return PhysNestedLoopJoin
	}
}

// chooseJoinAlgorithm honors an explicit hint if the caller supplied one;
// otherwise it picks Hash for larger inputs and NestedLoop when either side
// is small enough that building a hash table isn't worth it.
func chooseJoinAlgorithm(hint JoinAlgorithm, leftRows, rightRows int64, sharedVars []string) JoinAlgorithm {
	if hint != "" {
		return hint
	}
	if len(sharedVars) == 0 {
		return JoinNestedLoop
	}
	const smallThreshold = 64
	if leftRows <= smallThreshold || rightRows <= smallThreshold {
		return JoinNestedLoop
	}
	return JoinHash
}

func joinRowEstimate(leftRows, rightRows int64, alg JoinAlgorithm) int64 {
	switch alg {
	case JoinNestedLoop:
		return leftRows * rightRows / maxInt64(leftRows, 1)
	default:
		if leftRows < rightRows {
			return leftRows
		}
		return rightRows
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func estimateLabelRows(labels []string, stats *Statistics) int64 {
	if len(labels) == 0 {
		return stats.TotalNodes
	}
	var rows int64
	for _, l := range labels {
		rows += stats.NodeCounts[l]
	}
	if rows == 0 {
		rows = stats.TotalNodes
	}
	return rows
}

func estimateEdgeLabelRows(labels []string, stats *Statistics) int64 {
	if len(labels) == 0 {
		return stats.TotalEdges
	}
	var rows int64
	for _, l := range labels {
		rows += stats.EdgeCounts[l]
	}
	if rows == 0 {
		rows = stats.TotalEdges
	}
	return rows
}

func expandRowEstimate(inputRows int64, stats *Statistics) int64 {
	degree := stats.AverageDegree
	if degree <= 0 {
		degree = 1
	}
	return int64(float64(inputRows) * degree)
}

func estimateGroupRows(inputRows int64) int64 {
	if inputRows < 16 {
		return inputRows
	}
	// A group-by typically collapses rows; assume a conservative 10:1
	// reduction absent a distinct-value count for the grouping columns.
	return inputRows / 10
}

func estimatePathRows(elements []PathElement, stats *Statistics) int64 {
	rows := stats.TotalNodes
	if rows == 0 {
		rows = 1
	}
	degree := stats.AverageDegree
	if degree <= 0 {
		degree = 1
	}
	for range elements {
		rows = int64(float64(rows) * degree)
	}
	return rows
}

func hasAnyIndex(label string, stats *Statistics) bool {
	for _, ix := range stats.AvailableIndices {
		if ix.Label == label {
			return true
		}
	}
	return false
}
