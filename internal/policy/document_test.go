package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPolicyYAML = `
policy_name: ops-test
version: "1.0"
global_blocked:
  - delete_database
default_mode: NORMAL
modes:
  NORMAL:
    description: "Routine operations"
    allowed_tools: [get_service_status, read_logs]
    blocked_tools: [restart_service, scale_fleet]
  EMERGENCY:
    description: "Incident response"
    allowed_tools: [get_service_status, read_logs, restart_service, scale_fleet]
    blocked_tools: []
`

func TestParseDocument_Valid(t *testing.T) {
	doc, err := ParseDocument([]byte(testPolicyYAML))
	require.NoError(t, err)
	require.Equal(t, "ops-test", doc.Name)
	require.Equal(t, "NORMAL", doc.DefaultMode)
	require.Contains(t, doc.GlobalBlocked, "delete_database")
	require.Equal(t, []string{"EMERGENCY", "NORMAL"}, doc.ModeNames())

	normal := doc.Modes["NORMAL"]
	require.Equal(t, "Routine operations", normal.Description)
	require.Contains(t, normal.Allowed, "get_service_status")
	require.Contains(t, normal.Blocked, "restart_service")

	require.True(t, doc.Declared("delete_database"))
	require.True(t, doc.Declared("scale_fleet"))
	require.False(t, doc.Declared("backup_database"))
}

func TestParseDocument_AcceptsJSON(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"global_blocked": ["delete_database"],
		"default_mode": "NORMAL",
		"modes": {
			"NORMAL": {
				"description": "Routine operations",
				"allowed_tools": ["read_logs"],
				"blocked_tools": []
			}
		}
	}`))
	require.NoError(t, err)
	require.Equal(t, "NORMAL", doc.DefaultMode)
	require.Contains(t, doc.Modes["NORMAL"].Allowed, "read_logs")
}

func TestParseDocument_IgnoresUnknownKeys(t *testing.T) {
	doc, err := ParseDocument([]byte(`
global_blocked: []
default_mode: NORMAL
future_rule_sets: {thresholds: {scale_fleet: 10}}
modes:
  NORMAL:
    description: "Routine"
    allowed_tools: [read_logs]
    blocked_tools: []
`))
	require.NoError(t, err)
	require.Equal(t, "NORMAL", doc.DefaultMode)
}

func TestParseDocument_MissingFields(t *testing.T) {
	cases := map[string]string{
		"global_blocked": `
default_mode: NORMAL
modes:
  NORMAL: {description: x, allowed_tools: [], blocked_tools: []}
`,
		"modes": `
global_blocked: []
default_mode: NORMAL
`,
		"default_mode": `
global_blocked: []
modes:
  NORMAL: {description: x, allowed_tools: [], blocked_tools: []}
`,
	}

	for field, source := range cases {
		_, err := ParseDocument([]byte(source))
		require.Error(t, err, field)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, field)
		require.Contains(t, err.Error(), field)
	}
}

func TestParseDocument_DefaultModeMustResolve(t *testing.T) {
	_, err := ParseDocument([]byte(`
global_blocked: []
default_mode: MAINTENANCE
modes:
  NORMAL: {description: x, allowed_tools: [], blocked_tools: []}
`))
	require.Error(t, err)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	require.Contains(t, err.Error(), `default_mode "MAINTENANCE" is not a declared mode`)
	require.Contains(t, err.Error(), "NORMAL")
}

func TestParseDocument_MalformedSource(t *testing.T) {
	_, err := ParseDocument([]byte("modes: [not: a: mapping"))
	require.Error(t, err)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPolicyYAML), 0o600))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "NORMAL", doc.DefaultMode)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.False(t, errors.As(err, new(*FormatError)))
}
