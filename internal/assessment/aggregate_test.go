// internal/assessment/aggregate_test.go
package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sailmatch-workers/internal/domain"
)

func TestAggregateWeightedMean(t *testing.T) {
	results := []domain.AssessmentResult{
		{RequirementID: "a", Score: 8},
		{RequirementID: "b", Score: 4},
	}
	weights := map[string]float64{"a": 3, "b": 1}

	// (8*3 + 4*1) / 4 * 10 = 70
	assert.Equal(t, 70, Aggregate(results, weights))
}

func TestAggregateEmptySetIsPerfect(t *testing.T) {
	assert.Equal(t, 100, Aggregate(nil, nil))
}

func TestAggregateZeroWeights(t *testing.T) {
	results := []domain.AssessmentResult{{RequirementID: "a", Score: 2}}
	assert.Equal(t, 100, Aggregate(results, map[string]float64{"a": 0}))
}

func TestAggregateClampsOutOfRangeInputs(t *testing.T) {
	results := []domain.AssessmentResult{
		{RequirementID: "a", Score: 15},  // clamped to 10
		{RequirementID: "b", Score: -3}, // clamped to 0
	}
	weights := map[string]float64{"a": 20, "b": 10} // clamped to 10 each

	// (10*10 + 0*10) / 20 * 10 = 50
	assert.Equal(t, 50, Aggregate(results, weights))
}

func TestAggregateAlwaysInRange(t *testing.T) {
	cases := []struct {
		score, weight float64
	}{
		{0, 0}, {0, 10}, {10, 10}, {5.5, 2.3}, {10, 0.1},
	}
	for _, c := range cases {
		results := []domain.AssessmentResult{{RequirementID: "r", Score: c.score}}
		agg := Aggregate(results, map[string]float64{"r": c.weight})
		assert.GreaterOrEqual(t, agg, 0)
		assert.LessOrEqual(t, agg, 100)
	}
}

func TestAggregateRounding(t *testing.T) {
	// 2/3 * 10 scores of 6.666... → 67 after rounding
	results := []domain.AssessmentResult{
		{RequirementID: "a", Score: 10},
		{RequirementID: "b", Score: 10},
		{RequirementID: "c", Score: 0},
	}
	weights := map[string]float64{"a": 1, "b": 1, "c": 1}
	assert.Equal(t, 67, Aggregate(results, weights))
}
