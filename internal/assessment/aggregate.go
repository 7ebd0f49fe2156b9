// internal/assessment/aggregate.go
package assessment

import (
	"math"

	"sailmatch-workers/internal/domain"
)

// Aggregate computes the 0-100 weighted score over AI-scored requirement
// results. Pre-check requirement types never enter this sum. An empty set
// (or one with no effective weight) means there was nothing to assess, which
// aggregates to a perfect 100 — the decision gate still applies on top.
func Aggregate(results []domain.AssessmentResult, weightByRequirement map[string]float64) int {
	if len(results) == 0 {
		return 100
	}

	var weightedSum, totalWeight float64
	for _, r := range results {
		w := clampWeight(weightByRequirement[r.RequirementID])
		weightedSum += clampScore(r.Score) * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 100
	}

	aggregate := int(math.Round(weightedSum / totalWeight * 10))
	if aggregate < 0 {
		return 0
	}
	if aggregate > 100 {
		return 100
	}
	return aggregate
}
