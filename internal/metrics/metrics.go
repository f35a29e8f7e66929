// Package metrics exposes Prometheus counters for policy decisions and tool
// executions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	policyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxi_policy_decisions_total",
		Help: "Policy decisions by matched rule and outcome.",
	}, []string{"rule", "allowed"})

	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxi_tool_executions_total",
		Help: "Tool executions dispatched after policy approval, by result.",
	}, []string{"tool", "result"})
)

// ObserveDecision records one policy decision.
func ObserveDecision(rule string, allowed bool) {
	outcome := "false"
	if allowed {
		outcome = "true"
	}
	policyDecisions.WithLabelValues(rule, outcome).Inc()
}

// ObserveExecution records one dispatched tool execution.
func ObserveExecution(tool, result string) {
	toolExecutions.WithLabelValues(tool, result).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
