package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalCostAppliesSpecWeights(t *testing.T) {
	e := CostEstimate{CPUCost: 1, IOCost: 1, MemoryCost: 1, NetworkCost: 1}
	assert.InDelta(t, 1+10+0.1+5, e.TotalCost(), 1e-9)
}

func TestIndexScanCheaperThanSeqScanForSameRows(t *testing.T) {
	model := NewCostModel()
	stats := NewStatistics()
	seq := &Physical{Op: PhysNodeSeqScan, EstimatedRows: 100000}
	idx := &Physical{Op: PhysNodeIndexScan, EstimatedRows: 100000}
	assert.Greater(t, model.EstimateNodeCost(seq, stats).TotalCost(), model.EstimateNodeCost(idx, stats).TotalCost())
}

func TestNestedLoopJoinCostGrowsQuadratically(t *testing.T) {
	model := NewCostModel()
	stats := NewStatistics()
	small := &Physical{Op: PhysNestedLoopJoin,
		Left:  &Physical{Op: PhysNodeSeqScan, EstimatedRows: 10},
		Right: &Physical{Op: PhysNodeSeqScan, EstimatedRows: 10},
	}
	big := &Physical{Op: PhysNestedLoopJoin,
		Left:  &Physical{Op: PhysNodeSeqScan, EstimatedRows: 1000},
		Right: &Physical{Op: PhysNodeSeqScan, EstimatedRows: 1000},
	}
	smallCost := model.EstimateNodeCost(small, stats).TotalCost()
	bigCost := model.EstimateNodeCost(big, stats).TotalCost()
	assert.Greater(t, bigCost/smallCost, 100.0, "100x more rows each side should cost far more than 100x under O(L*R)")
}

func TestLimitCostScalesWithRatio(t *testing.T) {
	model := NewCostModel()
	stats := NewStatistics()
	input := &Physical{Op: PhysNodeSeqScan, EstimatedRows: 1000}
	limited := &Physical{Op: PhysLimit, Input: input, Count: 10}
	cost := model.EstimateNodeCost(limited, stats)
	full := model.EstimateNodeCost(input, stats)
	assert.Less(t, cost.CPUCost, full.CPUCost)
}

func TestHasIndexReflectsAvailableIndices(t *testing.T) {
	stats := NewStatistics()
	stats.AvailableIndices = append(stats.AvailableIndices, IndexInfo{Label: "Person", Property: "email"})
	assert.True(t, stats.HasIndex("Person", "email"))
	assert.False(t, stats.HasIndex("Person", "age"))
}
