package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0.0",
		"lastUpdated": "2026-08-20T09:00:00Z",
		"tools": [
			{"name": "search_journeys", "description": "Search journeys", "access": "public", "category": "data", "parameters": {"type": "object"}},
			{"name": "approve_registration", "description": "Approve", "access": "owner", "category": "action", "parameters": {"type": "object"}, "label": "Approve this registration?"}
		]
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", reg.Version)
	assert.Len(t, reg.Tools, 2)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	reg := &ToolRegistry{Tools: []Tool{
		{Name: "my_applications", Access: "crew", Category: "data"},
		{Name: "my_applications", Access: "crew", Category: "data"},
	}}
	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateRejectsUnknownAccessTier(t *testing.T) {
	reg := &ToolRegistry{Tools: []Tool{
		{Name: "search_journeys", Access: "admin", Category: "data"},
	}}
	assert.Error(t, reg.Validate())
}

func TestValidateRejectsUnknownCategory(t *testing.T) {
	reg := &ToolRegistry{Tools: []Tool{
		{Name: "search_journeys", Access: "public", Category: "query"},
	}}
	assert.Error(t, reg.Validate())
}

func TestValidateRejectsEmptyName(t *testing.T) {
	reg := &ToolRegistry{Tools: []Tool{
		{Name: "", Access: "public", Category: "data"},
	}}
	assert.Error(t, reg.Validate())
}

func TestGet(t *testing.T) {
	reg := &ToolRegistry{Tools: []Tool{
		{Name: "search_journeys", Access: "public", Category: "data"},
		{Name: "list_my_journeys", Access: "owner", Category: "data"},
	}}

	tool := reg.Get("list_my_journeys")
	require.NotNil(t, tool)
	assert.Equal(t, "owner", tool.Access)

	assert.Nil(t, reg.Get("unknown_tool"))
}
