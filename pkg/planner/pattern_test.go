package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTwoPatternsSharingOneVariableDetectAsLinearPath(t *testing.T) {
	patterns := []Pattern{
		{Variables: []string{"a", "r1", "b"}, Rows: 100},
		{Variables: []string{"b", "r2", "c"}, Rows: 100},
	}
	opt := OptimizePatterns(patterns, NewCostModel())
	assert.Equal(t, StrategyPathTraversal, opt.Strategy)
	assert.Equal(t, []string{"b"}, opt.SharedVars)
}

func TestThreePatternsSharingCentralNodeFormStarNotPath(t *testing.T) {
	patterns := []Pattern{
		{Variables: []string{"a", "r1", "b"}, Rows: 1000},
		{Variables: []string{"a", "r2", "c"}, Rows: 1000},
		{Variables: []string{"a", "r3", "d"}, Rows: 1000},
	}
	opt := OptimizePatterns(patterns, NewCostModel())
	assert.NotEqual(t, StrategyPathTraversal, opt.Strategy)
}

func TestNoSharedVariablesFallsBackToNestedLoopForFewPatterns(t *testing.T) {
	patterns := []Pattern{
		{Variables: []string{"a"}, Rows: 10},
		{Variables: []string{"b"}, Rows: 10},
	}
	opt := OptimizePatterns(patterns, NewCostModel())
	assert.Equal(t, StrategyNestedLoop, opt.Strategy)
}

func TestNoSharedVariablesFallsBackToCartesianBeyondFourPatterns(t *testing.T) {
	patterns := make([]Pattern, 5)
	for i := range patterns {
		patterns[i] = Pattern{Variables: []string{string(rune('a' + i))}, Rows: 10}
	}
	opt := OptimizePatterns(patterns, NewCostModel())
	assert.Equal(t, StrategyCartesian, opt.Strategy)
}

func TestSinglePatternNeverOptimized(t *testing.T) {
	opt := OptimizePatterns([]Pattern{{Variables: []string{"a"}, Rows: 10}}, NewCostModel())
	assert.Equal(t, StrategyCartesian, opt.Strategy)
}

func TestElevenPatternsExceedsOptimizationRange(t *testing.T) {
	patterns := make([]Pattern, 11)
	for i := range patterns {
		patterns[i] = Pattern{Variables: []string{"shared", string(rune('a' + i))}, Rows: 10}
	}
	opt := OptimizePatterns(patterns, NewCostModel())
	assert.Equal(t, StrategyCartesian, opt.Strategy)
}
