// Package api embeds the tool contract and the default operations policy
// shipped with the service.
package api

import _ "embed"

// ToolsContract is the embedded tool catalog YAML.
//
//go:embed tools.yaml
var ToolsContract []byte

// DefaultPolicy is the embedded default operations policy document.
//
//go:embed ops_policy.yaml
var DefaultPolicy []byte
