package policy

import (
	"fmt"
	"strings"
)

// RuleMatch identifies which rule produced a decision.
type RuleMatch string

const (
	// RuleGlobalBlock denied the tool unconditionally, in every mode.
	RuleGlobalBlock RuleMatch = "global_block"
	// RuleModeBlock denied the tool via the active mode's block list.
	RuleModeBlock RuleMatch = "mode_block"
	// RuleModeAllow allowed the tool via the active mode's allow list.
	RuleModeAllow RuleMatch = "mode_allow"
	// RuleDefaultDeny denied a tool mentioned in neither list of the active mode.
	RuleDefaultDeny RuleMatch = "default_deny"
)

// Decision is the outcome of one validation check. Denial is a normal value,
// not an error: callers branch on Allowed and RuleMatched.
type Decision struct {
	Tool        string    `json:"tool"`
	Mode        string    `json:"mode"`
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason"`
	RuleMatched RuleMatch `json:"rule_matched"`
}

// UnknownModeError indicates a mode name absent from the policy document.
type UnknownModeError struct {
	Mode      string
	Available []string
}

// Error implements error.
func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown mode %q (available: %s)", e.Mode, strings.Join(e.Available, ", "))
}

// UnknownToolError indicates a tool declared nowhere in the policy document.
// It is returned only when strict tool checking is enabled.
type UnknownToolError struct {
	Tool string
}

// Error implements error.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not declared in the policy", e.Tool)
}
