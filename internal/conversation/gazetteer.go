// internal/conversation/gazetteer.go
package conversation

import (
	"context"
	"fmt"
	"strings"

	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/store"
)

// Gazetteer is the region lookup collaborator.
type Gazetteer interface {
	ListGazetteer(ctx context.Context) ([]store.GazetteerEntry, error)
}

// ResolveLocations scans the user's message for known region names or
// aliases, case-insensitively. Matched regions are injected into the prompt
// with their bounding boxes so the model copies coordinates verbatim instead
// of inventing them.
func ResolveLocations(ctx context.Context, gaz Gazetteer, message string, log logger.Logger) []store.GazetteerEntry {
	entries, err := gaz.ListGazetteer(ctx)
	if err != nil {
		// Search still works without the hint, just without geo filtering.
		log.Warn("gazetteer lookup failed, continuing without location hints", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	lower := strings.ToLower(message)
	var matched []store.GazetteerEntry
	for _, e := range entries {
		if matchesRegion(lower, e) {
			matched = append(matched, e)
		}
	}
	return matched
}

func matchesRegion(lowerMessage string, e store.GazetteerEntry) bool {
	if strings.Contains(lowerMessage, strings.ToLower(e.Name)) {
		return true
	}
	for _, alias := range strings.Split(e.Aliases, ",") {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias != "" && strings.Contains(lowerMessage, alias) {
			return true
		}
	}
	return false
}

// LocationHint renders matched regions for the system prompt.
func LocationHint(entries []store.GazetteerEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Known sailing regions mentioned by the user. When searching by location, copy these bounding box coordinates exactly:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: minLat=%g, maxLat=%g, minLon=%g, maxLon=%g\n",
			e.Name, e.MinLat, e.MaxLat, e.MinLon, e.MaxLon)
	}
	return b.String()
}
