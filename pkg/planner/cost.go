package planner

import "math"

// CostEstimate is the four-component cost of a plan or operator (spec.md
// §4.3); TotalCost applies the weighted sum every planner decision
// compares on.
type CostEstimate struct {
	CPUCost     float64
	IOCost      float64
	MemoryCost  float64
	NetworkCost float64
}

// Add accumulates other into e, component-wise.
func (e *CostEstimate) Add(other CostEstimate) {
	e.CPUCost += other.CPUCost
	e.IOCost += other.IOCost
	e.MemoryCost += other.MemoryCost
	e.NetworkCost += other.NetworkCost
}

// TotalCost is the weighted sum cpu*1 + io*10 + memory*0.1 + network*5
// (spec.md §4.3), copied from original_source's CostEstimate::total_cost.
func (e CostEstimate) TotalCost() float64 {
	const (
		cpuWeight     = 1.0
		ioWeight      = 10.0
		memoryWeight  = 0.1
		networkWeight = 5.0
	)
	return e.CPUCost*cpuWeight + e.IOCost*ioWeight + e.MemoryCost*memoryWeight + e.NetworkCost*networkWeight
}

// IndexInfo describes one available index, mirroring the catalog's
// secondary indices (storagemgr.IndexSet).
type IndexInfo struct {
	Name        string
	Label       string
	Property    string
	Cardinality int
}

// Statistics is the planner's view of graph shape, loaded from the graph
// cache and storage manager when planning starts (spec.md §4.3).
type Statistics struct {
	TotalNodes          int64
	TotalEdges          int64
	NodeCounts          map[string]int64
	EdgeCounts          map[string]int64
	AverageDegree       float64
	MaxDegree           int64
	PropertySelectivity map[string]float64
	AvailableIndices    []IndexInfo
}

// NewStatistics returns an empty Statistics with initialized maps.
func NewStatistics() *Statistics {
	return &Statistics{
		NodeCounts:          make(map[string]int64),
		EdgeCounts:          make(map[string]int64),
		PropertySelectivity: make(map[string]float64),
	}
}

// PropertySelectivityOf returns the known selectivity for a property, or
// 0.5 (the original's default guess) if none is recorded.
func (s *Statistics) PropertySelectivityOf(property string) float64 {
	if v, ok := s.PropertySelectivity[property]; ok {
		return v
	}
	return 0.5
}

// HasIndex reports whether an index covers (label, property).
func (s *Statistics) HasIndex(label, property string) bool {
	for _, ix := range s.AvailableIndices {
		if ix.Label == label && ix.Property == property {
			return true
		}
	}
	return false
}

// CostModel estimates the cost of physical plan nodes (spec.md §4.3's
// per-operator formulas), directly adapted from
// original_source/graphlite/src/plan/cost.rs's CostModel.
type CostModel struct {
	CPUCostPerRow     float64
	IOCostPerPage     float64
	MemoryCostPerByte float64
}

// NewCostModel returns the default-tuned cost model.
func NewCostModel() *CostModel {
	return &CostModel{
		CPUCostPerRow:     0.001,
		IOCostPerPage:     0.01,
		MemoryCostPerByte: 0.000001,
	}
}

// EstimateNodeCost recursively costs a physical plan node.
func (m *CostModel) EstimateNodeCost(p *Physical, stats *Statistics) CostEstimate {
	if p == nil {
		return CostEstimate{}
	}
	switch p.Op {
	case PhysNodeSeqScan, PhysEdgeSeqScan:
		return m.estimateScanCost(p.EstimatedRows, true)
	case PhysNodeIndexScan:
		return m.estimateScanCost(p.EstimatedRows, false)
	case PhysGraphIndexScan:
		base := float64(p.EstimatedRows) * m.CPUCostPerRow * 0.05
		io := float64(p.EstimatedRows/10000) * m.IOCostPerPage * 0.1
		return CostEstimate{CPUCost: base, IOCost: io, MemoryCost: float64(p.EstimatedRows) * 100 * m.MemoryCostPerByte}
	case PhysIndexedExpand:
		cost := m.EstimateNodeCost(p.Input, stats)
		cost.Add(m.estimateExpandCost(p.EstimatedRows, false))
		return cost
	case PhysHashExpand:
		cost := m.EstimateNodeCost(p.Input, stats)
		cost.Add(m.estimateExpandCost(p.EstimatedRows, true))
		return cost
	case PhysFilter:
		cost := m.EstimateNodeCost(p.Input, stats)
		cost.Add(m.estimateFilterCost(p.Input.RowCount()))
		return cost
	case PhysProject:
		cost := m.EstimateNodeCost(p.Input, stats)
		cost.Add(m.estimateProjectCost(p.EstimatedRows))
		return cost
	case PhysHashJoin:
		cost := m.EstimateNodeCost(p.Build, stats)
		cost.Add(m.EstimateNodeCost(p.Probe, stats))
		cost.Add(m.estimateJoinCost(p.Build.RowCount(), p.Probe.RowCount(), JoinHash))
		return cost
	case PhysNestedLoopJoin:
		cost := m.EstimateNodeCost(p.Left, stats)
		cost.Add(m.EstimateNodeCost(p.Right, stats))
		cost.Add(m.estimateJoinCost(p.Left.RowCount(), p.Right.RowCount(), JoinNestedLoop))
		return cost
	case PhysSortMergeJoin:
		cost := m.EstimateNodeCost(p.Left, stats)
		cost.Add(m.EstimateNodeCost(p.Right, stats))
		cost.Add(m.estimateJoinCost(p.Left.RowCount(), p.Right.RowCount(), JoinSortMerge))
		return cost
	case PhysIndexJoin:
		cost := m.EstimateNodeCost(p.Build, stats)
		cost.Add(m.EstimateNodeCost(p.Probe, stats))
		cost.Add(m.estimateJoinCost(p.Build.RowCount(), p.Probe.RowCount(), JoinIndexNL))
		return cost
	case PhysExternalSort:
		cost := m.EstimateNodeCost(p.Input, stats)
		cost.Add(m.estimateSortCost(p.EstimatedRows, true))
		return cost
	case PhysInMemorySort:
		cost := m.EstimateNodeCost(p.Input, stats)
		cost.Add(m.estimateSortCost(p.EstimatedRows, false))
		return cost
	case PhysLimit:
		inputCost := m.EstimateNodeCost(p.Input, stats)
		inputRows := p.Input.RowCount()
		ratio := float64(p.Count) / math.Max(float64(inputRows), 1.0)
		return CostEstimate{
			CPUCost:     inputCost.CPUCost * ratio,
			IOCost:      inputCost.IOCost * ratio,
			MemoryCost:  inputCost.MemoryCost,
			NetworkCost: inputCost.NetworkCost * ratio,
		}
	case PhysSingleRow:
		return CostEstimate{CPUCost: 0.0001, MemoryCost: 0.0001}
	default:
		return CostEstimate{}
	}
}

func (m *CostModel) estimateScanCost(rows int64, sequential bool) CostEstimate {
	baseCPU := float64(rows) * m.CPUCostPerRow
	cpuMultiplier := 0.3
	if sequential {
		cpuMultiplier = 1.0
	}
	var io float64
	if sequential {
		io = float64(rows/1000) * m.IOCostPerPage
	} else {
		io = float64(rows/10000) * m.IOCostPerPage
	}
	return CostEstimate{
		CPUCost:    baseCPU * cpuMultiplier,
		IOCost:     io,
		MemoryCost: float64(rows*100) * m.MemoryCostPerByte,
	}
}

func (m *CostModel) estimateExpandCost(rows int64, useHash bool) CostEstimate {
	base := float64(rows) * m.CPUCostPerRow * 2.0
	memMultiplier := 1.0
	if useHash {
		memMultiplier = 2.0
	}
	return CostEstimate{
		CPUCost:    base,
		IOCost:     float64(rows/5000) * m.IOCostPerPage,
		MemoryCost: float64(rows*50) * m.MemoryCostPerByte * memMultiplier,
	}
}

func (m *CostModel) estimateFilterCost(inputRows int64) CostEstimate {
	return CostEstimate{CPUCost: float64(inputRows) * m.CPUCostPerRow * 0.5}
}

func (m *CostModel) estimateProjectCost(rows int64) CostEstimate {
	return CostEstimate{CPUCost: float64(rows) * m.CPUCostPerRow * 0.2}
}

func (m *CostModel) estimateJoinCost(leftRows, rightRows int64, alg JoinAlgorithm) CostEstimate {
	var cpuMultiplier, memMultiplier float64
	switch alg {
	case JoinHash:
		cpuMultiplier, memMultiplier = 1.5, 2.0
	case JoinNestedLoop:
		cpuMultiplier, memMultiplier = float64(leftRows), 0.1
	case JoinSortMerge:
		cpuMultiplier = math.Log2(float64(leftRows)) + math.Log2(float64(rightRows))
		memMultiplier = 1.0
	case JoinIndexNL:
		cpuMultiplier, memMultiplier = 0.8, 0.5
	}
	base := float64(leftRows+rightRows) * m.CPUCostPerRow
	maxRows := leftRows
	if rightRows > maxRows {
		maxRows = rightRows
	}
	return CostEstimate{
		CPUCost:    base * cpuMultiplier,
		IOCost:     float64((leftRows+rightRows)/1000) * m.IOCostPerPage,
		MemoryCost: float64(maxRows*100) * m.MemoryCostPerByte * memMultiplier,
	}
}

func (m *CostModel) estimateSortCost(rows int64, external bool) CostEstimate {
	r := float64(rows)
	nLogN := r * math.Log2(math.Max(r, 1))
	cpu := nLogN * m.CPUCostPerRow * 0.01
	ioMultiplier, memMultiplier := 0.0, 2.0
	if external {
		ioMultiplier, memMultiplier = 3.0, 0.5
	}
	return CostEstimate{
		CPUCost:    cpu,
		IOCost:     float64(rows/1000) * m.IOCostPerPage * ioMultiplier,
		MemoryCost: float64(rows*100) * m.MemoryCostPerByte * memMultiplier,
	}
}
