package server

import "github.com/proxi-ops/proxi-mcp/internal/policy"

// PolicyGate is the narrow engine contract the gateway consumes. Every tool
// execution must pass Validate before dispatch; a denial is a Decision value,
// never an error.
type PolicyGate interface {
	Validate(tool string, args, callCtx map[string]any) (policy.Decision, error)
	SetMode(name string) error
	CurrentMode() string
	AllowedTools() []string
	Reload(raw []byte) error
	Summary() policy.Summary
}
