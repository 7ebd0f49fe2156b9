// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRegistry reads the tool catalogue from a JSON file and validates it.
func LoadRegistry(path string) (*ToolRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reg ToolRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects malformed catalogues at startup rather than mid-chat.
func (r *ToolRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Tools))
	for _, tool := range r.Tools {
		if tool.Name == "" {
			return fmt.Errorf("tool with empty name")
		}
		if seen[tool.Name] {
			return fmt.Errorf("duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = true

		switch tool.Access {
		case "public", "authenticated", "crew", "owner":
		default:
			return fmt.Errorf("tool %q: unknown access tier %q", tool.Name, tool.Access)
		}
		switch tool.Category {
		case "data", "action":
		default:
			return fmt.Errorf("tool %q: unknown category %q", tool.Name, tool.Category)
		}
	}
	return nil
}

// Get returns the tool by name, or nil.
func (r *ToolRegistry) Get(name string) *Tool {
	for i := range r.Tools {
		if r.Tools[i].Name == name {
			return &r.Tools[i]
		}
	}
	return nil
}
