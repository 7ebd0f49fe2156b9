// internal/assessment/snapshot.go
package assessment

import (
	"encoding/json"
	"sort"

	"sailmatch-workers/internal/domain"
)

type snapshotEntry struct {
	RequirementID string `json:"requirementId"`
	Text          string `json:"text"`
}

// canonicalAnswersSnapshot serializes an answer set into a stable JSON form:
// entries sorted by requirement ID, only the fields that influence scoring.
// Two answer sets are identical iff their snapshots are byte-equal.
func canonicalAnswersSnapshot(answers map[string]domain.Answer) string {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]snapshotEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, snapshotEntry{RequirementID: id, Text: answers[id].Text})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(data)
}
