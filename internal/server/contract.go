package server

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// CategoryReadOnly marks diagnostic tools with no side effects.
	CategoryReadOnly = "read-only"
	// CategoryActive marks tools that change running infrastructure.
	CategoryActive = "active"
	// CategoryDestructive marks tools that destroy data.
	CategoryDestructive = "destructive"
)

// ToolSpec is a single tool contract entry. The category is descriptive
// metadata for the catalog; authorization is decided by the policy engine on
// the tool name alone.
type ToolSpec struct {
	Name        string         `yaml:"name" json:"name"`
	Category    string         `yaml:"category" json:"category"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	InputSchema map[string]any `yaml:"inputSchema,omitempty" json:"input_schema,omitempty"`
}

type toolContract struct {
	Version    string     `yaml:"version"`
	Service    string     `yaml:"service"`
	APIVersion string     `yaml:"apiVersion"`
	Tools      []ToolSpec `yaml:"tools"`
}

// ToolRegistry provides read-only access to parsed tools.
type ToolRegistry struct {
	contract toolContract
	byName   map[string]ToolSpec
}

// NewToolRegistry parses tool contract YAML and validates minimal invariants.
func NewToolRegistry(contractYAML []byte) (*ToolRegistry, error) {
	var parsed toolContract
	if err := yaml.Unmarshal(contractYAML, &parsed); err != nil {
		return nil, fmt.Errorf("decoding tool contract: %w", err)
	}
	if len(parsed.Tools) == 0 {
		return nil, fmt.Errorf("tool contract has no tools")
	}

	byName := make(map[string]ToolSpec, len(parsed.Tools))
	for _, tool := range parsed.Tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			return nil, fmt.Errorf("tool contract contains empty tool name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("tool contract contains duplicate tool %q", name)
		}
		tool.Name = name
		tool.Category = strings.TrimSpace(tool.Category)
		switch tool.Category {
		case CategoryReadOnly, CategoryActive, CategoryDestructive:
		case "":
			return nil, fmt.Errorf("tool %q has empty category", name)
		default:
			return nil, fmt.Errorf("tool %q has unknown category %q", name, tool.Category)
		}
		byName[name] = tool
	}

	return &ToolRegistry{
		contract: parsed,
		byName:   byName,
	}, nil
}

// List returns all registered tools in contract order.
func (r *ToolRegistry) List() []ToolSpec {
	items := make([]ToolSpec, 0, len(r.contract.Tools))
	for _, tool := range r.contract.Tools {
		tool.Name = strings.TrimSpace(tool.Name)
		items = append(items, tool)
	}
	return items
}

// Lookup returns a tool by name.
func (r *ToolRegistry) Lookup(name string) (ToolSpec, bool) {
	tool, ok := r.byName[strings.TrimSpace(name)]
	return tool, ok
}
