// internal/conversation/tools.go
package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/pkg/registry"
)

// Caller is the authenticated context of the person chatting. The model is
// shown only the tools the caller may use, and every execution re-checks the
// tier against this struct rather than trusting the model's choice.
type Caller struct {
	UserID        string
	Authenticated bool
	IsCrew        bool
	IsOwner       bool
}

// Allowed reports whether the caller clears the given access tier.
func (c Caller) Allowed(tier string) bool {
	switch tier {
	case "public":
		return true
	case "authenticated":
		return c.Authenticated
	case "crew":
		return c.Authenticated && c.IsCrew
	case "owner":
		return c.Authenticated && c.IsOwner
	default:
		return false
	}
}

// FilterCatalogue returns the tools visible to the caller, for the system
// prompt.
func FilterCatalogue(reg *registry.ToolRegistry, caller Caller) []registry.Tool {
	var visible []registry.Tool
	for _, tool := range reg.Tools {
		if caller.Allowed(tool.Access) {
			visible = append(visible, tool)
		}
	}
	return visible
}

// CheckAccess is the execution-time gate. A forged call to a tool outside the
// caller's tier is rejected here even when the catalogue never showed it.
func CheckAccess(tool *registry.Tool, caller Caller) error {
	if !caller.Allowed(tool.Access) {
		return errors.NewPermissionDeniedError(tool.Name, tool.Access)
	}
	return nil
}

// ValidateArguments checks the call's arguments against the tool's parameter
// schema before execution.
func ValidateArguments(tool *registry.Tool, args map[string]interface{}) error {
	if len(tool.Parameters) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(tool.Parameters)
	docLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return errors.NewToolArgumentInvalidError(tool.Name, err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return errors.NewToolArgumentInvalidError(tool.Name, strings.Join(details, "; "))
	}
	return nil
}

// CatalogueText renders the caller's visible tools for the system prompt.
func CatalogueText(tools []registry.Tool) string {
	if len(tools) == 0 {
		return "No tools are available."
	}
	var b strings.Builder
	for _, tool := range tools {
		params, _ := json.Marshal(tool.Parameters)
		fmt.Fprintf(&b, "- %s (%s): %s\n  Parameters: %s\n", tool.Name, tool.Category, tool.Description, params)
	}
	return b.String()
}
