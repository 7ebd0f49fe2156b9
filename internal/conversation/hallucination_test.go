// internal/conversation/hallucination_test.go
package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sailmatch-workers/internal/common/logger"
)

func TestSuppressStripsUnbackedCitation(t *testing.T) {
	content := "You could try [Biscay Crossing](journey:fake-123), departing soon."

	out := SuppressHallucinations(content, map[string]bool{}, logger.NewTestLogger(t))
	assert.Equal(t, "You could try Biscay Crossing, departing soon.", out)
}

func TestSuppressKeepsBackedCitation(t *testing.T) {
	content := "You could try [Biscay Crossing](journey:real-1)."
	known := map[string]bool{"real-1": true}

	out := SuppressHallucinations(content, known, logger.NewTestLogger(t))
	assert.Equal(t, content, out)
}

func TestSuppressMixedCitations(t *testing.T) {
	content := "See [Real Trip](journey:real-1) and [Fake Trip](leg:fake-2)."
	known := map[string]bool{"real-1": true}

	out := SuppressHallucinations(content, known, logger.NewTestLogger(t))
	assert.Equal(t, "See [Real Trip](journey:real-1) and Fake Trip.", out)
}

func TestSuppressIgnoresPlainMarkdownLinks(t *testing.T) {
	content := "Read more on [our help page](https://example.com/help)."

	out := SuppressHallucinations(content, map[string]bool{}, logger.NewTestLogger(t))
	assert.Equal(t, content, out)
}

func TestFlagSuspectedWhenClaimingResultsWithNoEntities(t *testing.T) {
	assert.True(t, FlagSuspectedHallucination("I found 4 journeys matching your dates.", map[string]bool{}))
}

func TestFlagSuspectedNotRaisedWhenToolsReturnedEntities(t *testing.T) {
	known := map[string]bool{"real-1": true}
	assert.False(t, FlagSuspectedHallucination("I found 4 journeys matching your dates.", known))
}

func TestFlagSuspectedNotRaisedForHedgedReply(t *testing.T) {
	assert.False(t, FlagSuspectedHallucination("I could not find anything matching that.", map[string]bool{}))
}
