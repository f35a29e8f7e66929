package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/proxi-ops/proxi-mcp/internal/policy"
)

func decodeSingleEvent(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	return decoded
}

func TestComplete_DeniedCall(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(zerolog.New(buf))

	logger.Complete(ToolCallCompletion{
		RequestID: "req-1",
		ToolName:  "restart_service",
		CallerSub: "ops-agent",
		Arguments: map[string]any{"service_name": "web-server"},
		Decision: policy.Decision{
			Tool:        "restart_service",
			Mode:        "NORMAL",
			Allowed:     false,
			Reason:      "restart_service blocked in NORMAL mode",
			RuleMatched: policy.RuleModeBlock,
		},
		Result:       "denied",
		Duration:     25 * time.Millisecond,
		ResponseCode: 403,
	})

	event := decodeSingleEvent(t, buf)
	require.Equal(t, "policy.tool_call.completed", event["event"])
	require.Equal(t, "restart_service", event["tool"])
	require.Equal(t, "NORMAL", event["mode"])
	require.Equal(t, "denied", event["result"])
	require.Equal(t, false, event["allowed"])
	require.Equal(t, "mode_block", event["rule_matched"])
	require.Equal(t, float64(403), event["response_code"])

	target, ok := event["target"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []any{"web-server"}, target["services"])
}

func TestComplete_DefaultsAndNegativeDuration(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(zerolog.New(buf))

	logger.Complete(ToolCallCompletion{Duration: -time.Second})

	event := decodeSingleEvent(t, buf)
	require.Equal(t, "unknown", event["tool"])
	require.Equal(t, "error", event["result"])
	require.Equal(t, float64(0), event["duration_ms"])
	_, hasRule := event["rule_matched"]
	require.False(t, hasRule)
}

func TestComplete_RedactsErrorDetail(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(zerolog.New(buf))

	logger.Complete(ToolCallCompletion{
		ToolName:    "read_logs",
		Result:      "error",
		ErrorDetail: "upstream rejected Bearer abc.def.ghi with token=supersecret",
	})

	event := decodeSingleEvent(t, buf)
	detail, ok := event["error_detail"].(string)
	require.True(t, ok)
	require.NotContains(t, detail, "abc.def.ghi")
	require.NotContains(t, detail, "supersecret")
	require.Contains(t, detail, "[REDACTED]")
}

func TestModeChangeAndReloadEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(zerolog.New(buf))

	logger.ModeChange("NORMAL", "EMERGENCY", "sre-oncall")
	logger.PolicyReload("ops-policy", "NORMAL", "sre-oncall")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var modeEvent map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &modeEvent))
	require.Equal(t, "policy.mode.changed", modeEvent["event"])
	require.Equal(t, "NORMAL", modeEvent["previous_mode"])
	require.Equal(t, "EMERGENCY", modeEvent["new_mode"])

	var reloadEvent map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &reloadEvent))
	require.Equal(t, "policy.document.reloaded", reloadEvent["event"])
	require.Equal(t, "ops-policy", reloadEvent["policy"])
}

func TestSummarizeTargets(t *testing.T) {
	summary := SummarizeTargets(map[string]any{
		"service_name": "database",
		"db_name":      "orders",
		"count":        7,
	})
	require.Equal(t, []string{"database"}, summary.Services)
	require.Equal(t, []string{"orders"}, summary.Databases)

	require.Equal(t, TargetSummary{}, SummarizeTargets(nil))
}
