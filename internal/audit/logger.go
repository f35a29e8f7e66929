// Package audit provides structured audit logging for policy-gated tool calls.
package audit

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxi-ops/proxi-mcp/internal/policy"
)

var (
	bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern    = regexp.MustCompile(`(?i)\b(token|secret|password|authorization)\s*[:=]\s*([^\s,;]+)`)
)

// ToolCallCompletion captures one finalized tool-call outcome, whether the
// call was executed or refused by policy.
type ToolCallCompletion struct {
	RequestID    string
	ToolName     string
	CallerSub    string
	Arguments    map[string]any
	Decision     policy.Decision
	Result       string
	ErrorDetail  string
	Duration     time.Duration
	ResponseCode int
}

// TargetSummary is a redacted summary of what a call touched.
type TargetSummary struct {
	Services  []string `json:"services,omitempty"`
	Databases []string `json:"databases,omitempty"`
}

// Logger emits structured audit entries.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Complete writes a single completion entry for one tool call.
func (l *Logger) Complete(event ToolCallCompletion) {
	if l == nil {
		return
	}

	result := strings.TrimSpace(event.Result)
	if result == "" {
		result = "error"
	}
	tool := strings.TrimSpace(event.ToolName)
	if tool == "" {
		tool = "unknown"
	}
	duration := event.Duration
	if duration < 0 {
		duration = 0
	}

	entry := l.logger.Info().
		Str("event", "policy.tool_call.completed").
		Str("request_id", strings.TrimSpace(event.RequestID)).
		Str("tool", tool).
		Str("mode", strings.TrimSpace(event.Decision.Mode)).
		Str("caller_subject", strings.TrimSpace(event.CallerSub)).
		Str("result", result).
		Int64("duration_ms", duration.Milliseconds()).
		Interface("target", SummarizeTargets(event.Arguments))

	if event.Decision.RuleMatched != "" {
		entry = entry.
			Bool("allowed", event.Decision.Allowed).
			Str("rule_matched", string(event.Decision.RuleMatched)).
			Str("reason", event.Decision.Reason)
	}
	if event.ResponseCode > 0 {
		entry = entry.Int("response_code", event.ResponseCode)
	}
	if redactedError := RedactSensitiveText(event.ErrorDetail); redactedError != "" {
		entry = entry.Str("error_detail", redactedError)
	}

	entry.Msg("tool call completed")
}

// ModeChange writes one entry for an operational mode transition.
func (l *Logger) ModeChange(previous, next, callerSub string) {
	if l == nil {
		return
	}
	l.logger.Info().
		Str("event", "policy.mode.changed").
		Str("previous_mode", strings.TrimSpace(previous)).
		Str("new_mode", strings.TrimSpace(next)).
		Str("caller_subject", strings.TrimSpace(callerSub)).
		Msg("operational mode changed")
}

// PolicyReload writes one entry for a policy document swap.
func (l *Logger) PolicyReload(policyName, mode, callerSub string) {
	if l == nil {
		return
	}
	l.logger.Info().
		Str("event", "policy.document.reloaded").
		Str("policy", strings.TrimSpace(policyName)).
		Str("mode", strings.TrimSpace(mode)).
		Str("caller_subject", strings.TrimSpace(callerSub)).
		Msg("policy document reloaded")
}

// SummarizeTargets builds a compact target summary from tool arguments.
func SummarizeTargets(args map[string]any) TargetSummary {
	if args == nil {
		return TargetSummary{}
	}
	return TargetSummary{
		Services:  uniqueStrings(readString(args, "service_name", "service")),
		Databases: uniqueStrings(readString(args, "db_name", "database")),
	}
}

// RedactSensitiveText removes obvious secrets from free-text error details.
func RedactSensitiveText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	redacted := bearerTokenPattern.ReplaceAllString(trimmed, "Bearer [REDACTED]")
	redacted = keyValuePattern.ReplaceAllStringFunc(redacted, func(match string) string {
		parts := strings.SplitN(match, ":", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s: [REDACTED]", strings.TrimSpace(parts[0]))
		}
		parts = strings.SplitN(match, "=", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s=[REDACTED]", strings.TrimSpace(parts[0]))
		}
		return "[REDACTED]"
	})
	return redacted
}

func readString(args map[string]any, keys ...string) []string {
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		raw, ok := args[key]
		if !ok {
			continue
		}
		asString, ok := raw.(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(asString)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}
	slices.Sort(unique)
	return unique
}
