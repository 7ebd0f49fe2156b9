// internal/conversation/hallucination.go
package conversation

import (
	"regexp"

	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/common/metrics"
)

// citationPattern matches inline entity citations like
// [Biscay Crossing](journey:abc-123) or [leg 2](leg:def-456).
var citationPattern = regexp.MustCompile(`\[([^\]]+)\]\((journey|leg|registration):([^)\s]+)\)`)

// SuppressHallucinations strips citation markup whose entity ID was never
// returned by a tool call this conversation, keeping the plain label. IDs
// that tools did return pass through untouched.
func SuppressHallucinations(content string, knownIDs map[string]bool, log logger.Logger) string {
	return citationPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := citationPattern.FindStringSubmatch(match)
		label, entityType, id := parts[1], parts[2], parts[3]
		if knownIDs[id] {
			return match
		}
		metrics.HallucinatedCitations.Inc()
		log.Warn("stripped citation with no backing tool result", map[string]interface{}{
			"entityType": entityType,
			"entityId":   id,
		})
		return label
	})
}

// Phrasings typical of fabricated specific results. When the model claims
// concrete findings in a turn where no tool returned any entity, the turn is
// flagged for observability. Nothing is redacted; plain text carries no IDs
// to verify against.
var suspectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bI found \d+\b`),
	regexp.MustCompile(`(?i)\bhere (?:are|is) (?:the|\d+) (?:journey|journeys|leg|legs|registration|registrations)\b`),
	regexp.MustCompile(`(?i)\b(?:journey|leg|registration) (?:named|called) "[^"]+"`),
}

// FlagSuspectedHallucination increments the heuristic counter when the final
// content claims specific results but no tool returned any entity.
func FlagSuspectedHallucination(content string, knownIDs map[string]bool) bool {
	if len(knownIDs) > 0 {
		return false
	}
	for _, p := range suspectPatterns {
		if p.MatchString(content) {
			metrics.SuspectedHallucinations.Inc()
			return true
		}
	}
	return false
}
