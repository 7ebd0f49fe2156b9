// internal/assessment/prechecks.go
package assessment

import (
	"encoding/json"
	"fmt"
	"strings"

	"sailmatch-workers/internal/domain"
)

// NormalizeRiskSet turns a raw risk-comfort value into a string set. The web
// layer stores this column inconsistently: a scalar ("Coastal sailing"), a
// postgres array literal, or a JSON-encoded array, sometimes double-encoded.
func NormalizeRiskSet(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range normalizeRiskValues(raw) {
		v = strings.TrimSpace(v)
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func normalizeRiskValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// JSON array, possibly of strings that are themselves JSON.
	if strings.HasPrefix(raw, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			var out []string
			for _, v := range arr {
				out = append(out, normalizeRiskValues(v)...)
			}
			return out
		}
	}

	// JSON-encoded string: "\"Coastal sailing\"" or a stringified array.
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil && inner != raw {
			return normalizeRiskValues(inner)
		}
	}

	// Postgres array literal: {Coastal sailing,Offshore sailing}
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		trimmed := strings.Trim(raw, "{}")
		var out []string
		for _, v := range strings.Split(trimmed, ",") {
			out = append(out, strings.Trim(strings.TrimSpace(v), `"`))
		}
		return out
	}

	return []string{raw}
}

// CheckRiskLevels verifies every risk level the journey requires is in the
// crew member's comfort set. Returns the missing levels in required order.
func CheckRiskLevels(required []string, crewRaw string) (missing []string) {
	if len(required) == 0 {
		return nil
	}
	crewSet := NormalizeRiskSet(crewRaw)
	for _, level := range required {
		level = strings.TrimSpace(level)
		if level == "" {
			continue
		}
		if !crewSet[level] {
			missing = append(missing, level)
		}
	}
	return missing
}

// RequiredExperienceLevel picks the leg's minimum when set, else the
// journey's.
func RequiredExperienceLevel(journey *domain.Journey, leg *domain.Leg) int {
	if leg != nil && leg.MinExperienceLevel > 0 {
		return leg.MinExperienceLevel
	}
	return journey.MinExperienceLevel
}

// CheckExperienceLevel verifies the crew's ordinal level meets the minimum.
// The failure message uses human-readable level names.
func CheckExperienceLevel(crewLevel, requiredLevel int) (ok bool, message string) {
	if requiredLevel <= 0 || crewLevel >= requiredLevel {
		return true, ""
	}
	return false, fmt.Sprintf(
		"Experience level too low: crew member is %s, journey requires at least %s",
		domain.ExperienceLevelName(crewLevel),
		domain.ExperienceLevelName(requiredLevel),
	)
}
