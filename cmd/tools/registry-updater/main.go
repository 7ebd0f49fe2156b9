// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sailmatch-workers/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// Add command flags
	nameAdd := addCmd.String("name", "", "Tool name (e.g., search_journeys)")
	description := addCmd.String("description", "", "Description shown to the model")
	access := addCmd.String("access", "", "Access tier (public, authenticated, crew, owner)")
	category := addCmd.String("category", "", "Category (data, action)")
	label := addCmd.String("label", "", "Confirmation label (action tools only)")
	addCmd.StringVar(&registryPath, "path", "configs/tool-registry.json", "Path to registry file")

	// Update command flags
	nameUpdate := updateCmd.String("name", "", "Tool name to update")
	field := updateCmd.String("field", "", "Field to update (description, access, category, label)")
	value := updateCmd.String("value", "", "New value for the field")
	updateCmd.StringVar(&registryPath, "path", "configs/tool-registry.json", "Path to registry file")

	// Validate command flags
	validateCmd.StringVar(&registryPath, "path", "configs/tool-registry.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *nameAdd == "" || *description == "" || *access == "" || *category == "" {
			fmt.Println("Error: name, description, access, and category are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		tool := registry.Tool{
			Name:        *nameAdd,
			Description: *description,
			Access:      *access,
			Category:    *category,
			Label:       *label,
			Parameters: map[string]interface{}{
				"type":                 "object",
				"properties":           map[string]interface{}{},
				"additionalProperties": false,
			},
		}
		if err := addTool(&tool); err != nil {
			fmt.Printf("Error adding tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added tool: %s\n", *nameAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *nameUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: name, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateTool(*nameUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating tool: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated tool %s, field %s to %s\n", *nameUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func addTool(tool *registry.Tool) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		// If file doesn't exist, create new registry
		if os.IsNotExist(err) {
			reg = &registry.ToolRegistry{
				Version:     "1.0.0",
				LastUpdated: time.Now().Format(time.RFC3339),
				Tools:       []registry.Tool{},
			}
		} else {
			return fmt.Errorf("failed to load registry: %w", err)
		}
	}

	// Check if tool already exists
	if reg.Get(tool.Name) != nil {
		return fmt.Errorf("tool with name %s already exists", tool.Name)
	}

	reg.Tools = append(reg.Tools, *tool)
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	if err := reg.Validate(); err != nil {
		return err
	}

	return saveRegistry(reg, registryPath)
}

func updateTool(name, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Tools {
		if reg.Tools[i].Name == name {
			found = true
			switch field {
			case "description":
				reg.Tools[i].Description = value
			case "access":
				reg.Tools[i].Access = value
			case "category":
				reg.Tools[i].Category = value
			case "label":
				reg.Tools[i].Label = value
			default:
				return fmt.Errorf("unknown field: %s", field)
			}
			break
		}
	}

	if !found {
		return fmt.Errorf("tool with name %s not found", name)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)

	if err := reg.Validate(); err != nil {
		return err
	}

	return saveRegistry(reg, registryPath)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(reg.Tools) == 0 {
		return fmt.Errorf("registry contains no tools")
	}

	for _, tool := range reg.Tools {
		if tool.Category == "action" && tool.Label == "" {
			fmt.Printf("Warning: action tool %s has no confirmation label\n", tool.Name)
		}
	}

	fmt.Printf("Registry validation passed. Found %d tools.\n", len(reg.Tools))
	return nil
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.ToolRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new tool to the catalogue
  update   Update an existing tool's field
  validate Validate the catalogue file
  help     Show this help message

Examples:
  registry-updater add -name search_journeys -description "Search published journeys" -access public -category data
  registry-updater update -name approve_registration -field label -value "Approve this registration?"
  registry-updater validate -path configs/tool-registry.json

Use 'registry-updater <command> -h' for more information about a command.
`)
}
