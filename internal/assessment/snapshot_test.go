package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sailmatch-workers/internal/domain"
)

func TestCanonicalAnswersSnapshotOrderIndependent(t *testing.T) {
	a := canonicalAnswersSnapshot(map[string]domain.Answer{
		"q-2": {RequirementID: "q-2", Text: "second"},
		"q-1": {RequirementID: "q-1", Text: "first"},
	})
	b := canonicalAnswersSnapshot(map[string]domain.Answer{
		"q-1": {RequirementID: "q-1", Text: "first"},
		"q-2": {RequirementID: "q-2", Text: "second"},
	})
	assert.Equal(t, a, b)
	assert.Equal(t, `[{"requirementId":"q-1","text":"first"},{"requirementId":"q-2","text":"second"}]`, a)
}

func TestCanonicalAnswersSnapshotTextChangesIt(t *testing.T) {
	a := canonicalAnswersSnapshot(map[string]domain.Answer{
		"q-1": {RequirementID: "q-1", Text: "first"},
	})
	b := canonicalAnswersSnapshot(map[string]domain.Answer{
		"q-1": {RequirementID: "q-1", Text: "edited"},
	})
	assert.NotEqual(t, a, b)
}

func TestCanonicalAnswersSnapshotEmpty(t *testing.T) {
	assert.Equal(t, "[]", canonicalAnswersSnapshot(nil))
}
