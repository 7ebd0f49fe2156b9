// internal/assessment/parse.go
package assessment

import (
	"encoding/json"
	"strings"
)

// requirementScore is one entry of the batch scoring response. Index refers
// to the requirement's position in the prompt, in input order.
type requirementScore struct {
	Index     int     `json:"index"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// parseScoreArray extracts a JSON array of requirement scores from model
// output. Models wrap JSON in code fences or prose; we locate the outermost
// array and parse just that.
func parseScoreArray(text string) ([]requirementScore, error) {
	payload := extractJSONPayload(text, '[', ']')

	var scores []requirementScore
	if err := json.Unmarshal([]byte(payload), &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// extractJSONPayload strips code fences and slices out the first balanced
// open..close region. Falls back to the raw text when no region is found.
func extractJSONPayload(text string, open, close byte) string {
	text = stripCodeFences(text)

	start := strings.IndexByte(text, open)
	if start < 0 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// clampScore bounds a model-reported score to [0,10].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// clampWeight bounds an owner-set weight to [0,10].
func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 10 {
		return 10
	}
	return w
}
