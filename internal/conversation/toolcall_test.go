// internal/conversation/toolcall_test.go
package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCallFencedBlock(t *testing.T) {
	text := "Let me search for that.\n```json\n{\"name\": \"search_journeys\", \"arguments\": {\"text\": \"biscay\"}}\n```"

	call := ParseToolCall(text)
	require.NotNil(t, call)
	assert.Equal(t, "search_journeys", call.Name)
	assert.Equal(t, "biscay", call.Arguments["text"])
}

func TestParseToolCallUnlabelledFence(t *testing.T) {
	text := "```\n{\"name\": \"my_applications\", \"arguments\": {}}\n```"

	call := ParseToolCall(text)
	require.NotNil(t, call)
	assert.Equal(t, "my_applications", call.Name)
}

func TestParseToolCallNoBlockMeansFinalContent(t *testing.T) {
	assert.Nil(t, ParseToolCall("I found three journeys departing from Falmouth in September."))
}

func TestParseToolCallRepairsTrailingComma(t *testing.T) {
	text := "```json\n{\"name\": \"search_journeys\", \"arguments\": {\"text\": \"solent\",}}\n```"

	call := ParseToolCall(text)
	require.NotNil(t, call)
	assert.Equal(t, "solent", call.Arguments["text"])
}

func TestParseToolCallRepairsMissingClosers(t *testing.T) {
	text := "```json\n{\"name\": \"search_journeys\", \"arguments\": {\"text\": \"atlantic\"\n```"

	call := ParseToolCall(text)
	require.NotNil(t, call)
	assert.Equal(t, "atlantic", call.Arguments["text"])
}

func TestParseToolCallBareObject(t *testing.T) {
	text := `Sure: {"name": "list_my_journeys", "arguments": {}}`

	call := ParseToolCall(text)
	require.NotNil(t, call)
	assert.Equal(t, "list_my_journeys", call.Name)
}

func TestParseToolCallEmptyNameRejected(t *testing.T) {
	assert.Nil(t, ParseToolCall("```json\n{\"name\": \"\", \"arguments\": {}}\n```"))
}

func TestParseToolCallGarbageBlockRejected(t *testing.T) {
	assert.Nil(t, ParseToolCall("```json\n{this is not json at all]]\n```"))
}

func TestParseToolCallNilArgumentsDefaulted(t *testing.T) {
	call := ParseToolCall("```json\n{\"name\": \"my_applications\"}\n```")
	require.NotNil(t, call)
	assert.NotNil(t, call.Arguments)
}

func TestStripToolCallKeepsSurroundingText(t *testing.T) {
	text := "Checking the index now.\n```json\n{\"name\": \"search_journeys\", \"arguments\": {}}\n```"

	assert.Equal(t, "Checking the index now.", StripToolCall(text))
}

func TestRepairJSONTruncatesAfterBalancedObject(t *testing.T) {
	raw := `{"name": "x", "arguments": {}} trailing noise`
	assert.Equal(t, `{"name": "x", "arguments": {}}`, repairJSON(raw))
}
