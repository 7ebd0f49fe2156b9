// internal/assessment/prechecks_test.go
package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sailmatch-workers/internal/domain"
)

func TestNormalizeRiskSetShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"scalar", "Coastal sailing", []string{"Coastal sailing"}},
		{"json array", `["Coastal sailing","Offshore sailing"]`, []string{"Coastal sailing", "Offshore sailing"}},
		{"json encoded string", `"Coastal sailing"`, []string{"Coastal sailing"}},
		{"double encoded array", `"[\"Coastal sailing\",\"Ocean crossing\"]"`, []string{"Coastal sailing", "Ocean crossing"}},
		{"postgres array literal", `{Coastal sailing,"Offshore sailing"}`, []string{"Coastal sailing", "Offshore sailing"}},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NormalizeRiskSet(tt.raw)
			assert.Len(t, set, len(tt.want))
			for _, v := range tt.want {
				assert.True(t, set[v], "expected %q in set", v)
			}
		})
	}
}

func TestCheckRiskLevelsReportsMissing(t *testing.T) {
	missing := CheckRiskLevels(
		[]string{"Coastal sailing", "Offshore sailing"},
		`["Coastal sailing"]`,
	)
	assert.Equal(t, []string{"Offshore sailing"}, missing)
}

func TestCheckRiskLevelsAllCovered(t *testing.T) {
	missing := CheckRiskLevels(
		[]string{"Coastal sailing"},
		`["Coastal sailing","Offshore sailing"]`,
	)
	assert.Empty(t, missing)
}

func TestCheckRiskLevelsNoRequirements(t *testing.T) {
	assert.Empty(t, CheckRiskLevels(nil, ""))
}

func TestCheckExperienceLevelNamesLevels(t *testing.T) {
	ok, msg := CheckExperienceLevel(2, 3)
	assert.False(t, ok)
	assert.Contains(t, msg, "Competent Crew")
	assert.Contains(t, msg, "Coastal Skipper")
}

func TestCheckExperienceLevelMeetsMinimum(t *testing.T) {
	ok, msg := CheckExperienceLevel(3, 3)
	assert.True(t, ok)
	assert.Empty(t, msg)

	ok, _ = CheckExperienceLevel(4, 2)
	assert.True(t, ok)
}

func TestRequiredExperienceLevelLegOverridesJourney(t *testing.T) {
	journey := &domain.Journey{MinExperienceLevel: 2}

	assert.Equal(t, 3, RequiredExperienceLevel(journey, &domain.Leg{MinExperienceLevel: 3}))
	assert.Equal(t, 2, RequiredExperienceLevel(journey, &domain.Leg{}))
	assert.Equal(t, 2, RequiredExperienceLevel(journey, nil))
}
