// Package policy implements the decision engine that gates every tool
// execution against the active operational mode.
package policy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatError indicates a malformed or structurally incomplete policy document.
type FormatError struct {
	Detail string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid policy document: %s", e.Detail)
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Detail: fmt.Sprintf(format, args...)}
}

// ModeRule holds the per-mode allow and block sets.
type ModeRule struct {
	Description string
	Allowed     map[string]struct{}
	Blocked     map[string]struct{}
}

// Document is a parsed, validated policy document. It is immutable after
// parsing; reload swaps whole documents, never mutates one in place.
type Document struct {
	Name          string
	Version       string
	GlobalBlocked map[string]struct{}
	Modes         map[string]ModeRule
	DefaultMode   string

	// declared is the union of every tool named anywhere in the document,
	// used only by strict validation.
	declared map[string]struct{}
}

type rawModeRule struct {
	Description  string   `yaml:"description"`
	AllowedTools []string `yaml:"allowed_tools"`
	BlockedTools []string `yaml:"blocked_tools"`
}

type rawDocument struct {
	PolicyName    string                 `yaml:"policy_name"`
	Version       string                 `yaml:"version"`
	GlobalBlocked []string               `yaml:"global_blocked"`
	Modes         map[string]rawModeRule `yaml:"modes"`
	DefaultMode   string                 `yaml:"default_mode"`
}

// ParseDocument decodes and validates a policy document. The source is YAML,
// which also admits JSON policies. Unknown top-level keys are ignored.
func ParseDocument(raw []byte) (*Document, error) {
	var parsed rawDocument
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, formatErrorf("decoding policy source: %v", err)
	}

	if parsed.GlobalBlocked == nil {
		return nil, formatErrorf("missing required field global_blocked")
	}
	if len(parsed.Modes) == 0 {
		return nil, formatErrorf("missing required field modes (at least one mode must be declared)")
	}
	defaultMode := strings.TrimSpace(parsed.DefaultMode)
	if defaultMode == "" {
		return nil, formatErrorf("missing required field default_mode")
	}
	if _, ok := parsed.Modes[defaultMode]; !ok {
		return nil, formatErrorf("default_mode %q is not a declared mode (declared: %s)", defaultMode, strings.Join(sortedModeNames(parsed.Modes), ", "))
	}

	doc := &Document{
		Name:          strings.TrimSpace(parsed.PolicyName),
		Version:       strings.TrimSpace(parsed.Version),
		GlobalBlocked: toolSet(parsed.GlobalBlocked),
		Modes:         make(map[string]ModeRule, len(parsed.Modes)),
		DefaultMode:   defaultMode,
		declared:      map[string]struct{}{},
	}
	for tool := range doc.GlobalBlocked {
		doc.declared[tool] = struct{}{}
	}

	for name, rule := range parsed.Modes {
		modeName := strings.TrimSpace(name)
		if modeName == "" {
			return nil, formatErrorf("modes contains an empty mode name")
		}
		parsedRule := ModeRule{
			Description: strings.TrimSpace(rule.Description),
			Allowed:     toolSet(rule.AllowedTools),
			Blocked:     toolSet(rule.BlockedTools),
		}
		doc.Modes[modeName] = parsedRule
		for tool := range parsedRule.Allowed {
			doc.declared[tool] = struct{}{}
		}
		for tool := range parsedRule.Blocked {
			doc.declared[tool] = struct{}{}
		}
	}

	return doc, nil
}

// LoadFile reads and parses a policy document from disk.
func LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParseDocument(raw)
}

// ModeNames returns the declared mode names, sorted.
func (d *Document) ModeNames() []string {
	names := make([]string, 0, len(d.Modes))
	for name := range d.Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declared reports whether a tool is named anywhere in the document.
func (d *Document) Declared(tool string) bool {
	_, ok := d.declared[strings.TrimSpace(tool)]
	return ok
}

func toolSet(tools []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tools))
	for _, tool := range tools {
		trimmed := strings.TrimSpace(tool)
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	return set
}

func sortedModeNames(modes map[string]rawModeRule) []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedTools(set map[string]struct{}) []string {
	tools := make([]string, 0, len(set))
	for tool := range set {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}
