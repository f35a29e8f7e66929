// Package config loads proxi-mcp configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
)

const defaultListenAddr = ":8000"

// Config holds service runtime configuration.
type Config struct {
	ListenAddr string
	LogLevel   string

	// PolicyPath points at an operator-supplied policy document. Empty means
	// the embedded default policy.
	PolicyPath string
	// Mode overrides the policy document's default mode at startup. Empty
	// means the document's default. Validated against the document when the
	// engine starts.
	Mode string
	// StrictTools makes validation fail for tools declared nowhere in the
	// policy instead of falling through to default deny.
	StrictTools bool

	// Token is the bearer token required on mutating endpoints.
	Token string

	MetricsEnabled bool
}

// Load returns configuration parsed from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOrDefault("PROXI_MCP_LISTEN_ADDR", defaultListenAddr),
		LogLevel:       strings.ToLower(strings.TrimSpace(envOrDefault("PROXI_MCP_LOG_LEVEL", "info"))),
		PolicyPath:     strings.TrimSpace(os.Getenv("PROXI_MCP_POLICY_PATH")),
		Mode:           strings.TrimSpace(os.Getenv("PROXI_MCP_MODE")),
		StrictTools:    envBool("PROXI_MCP_STRICT_TOOLS", false),
		Token:          strings.TrimSpace(os.Getenv("PROXI_MCP_TOKEN")),
		MetricsEnabled: envBool("PROXI_MCP_METRICS_ENABLED", true),
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}
