// pkg/registry/schema.go
package registry

// ToolRegistry is the static tool catalogue loaded at startup and read-only
// at runtime.
type ToolRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Tools       []Tool `json:"tools"`
}

// Tool is one catalogue entry. Access gates who may call it; Category
// separates read-only data tools from mutating action tools, which require
// explicit caller approval before execution.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Access      string                 `json:"access"`   // public | authenticated | crew | owner
	Category    string                 `json:"category"` // data | action
	Parameters  map[string]interface{} `json:"parameters"`
	Label       string                 `json:"label,omitempty"` // confirmation label for action tools
}
