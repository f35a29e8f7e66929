// Package tools provides the mock cloud infrastructure that policy-approved
// tool calls execute against.
package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	minFleetSize = 1
	maxFleetSize = 100

	// actionLogLimit bounds the in-memory audit trail of executed actions.
	actionLogLimit = 100
)

// ActionRecord is one executed infrastructure action.
type ActionRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}

// Snapshot is a point-in-time view of the mock infrastructure.
type Snapshot struct {
	Services      map[string]string `json:"services"`
	FleetSize     int               `json:"fleet_size"`
	RecentActions []ActionRecord    `json:"recent_actions"`
}

// Infrastructure simulates a small cloud estate: named services with a health
// state, a fleet of instances, and a bounded action log.
type Infrastructure struct {
	now func() time.Time

	mu        sync.Mutex
	services  map[string]string
	fleetSize int
	actions   []ActionRecord
}

// NewInfrastructure creates the mock estate in a healthy starting state.
func NewInfrastructure() *Infrastructure {
	return &Infrastructure{
		now: time.Now,
		services: map[string]string{
			"web-server":  "healthy",
			"api-gateway": "healthy",
			"database":    "healthy",
			"cache":       "healthy",
		},
		fleetSize: 3,
	}
}

// ListServices returns the known service names.
func (i *Infrastructure) ListServices() map[string]any {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logAction("list_services", nil)

	return map[string]any{
		"services":  i.serviceNames(),
		"timestamp": i.timestamp(),
	}
}

// ServiceStatus reports health for one service, or the whole estate when name
// is empty.
func (i *Infrastructure) ServiceStatus(name string) (map[string]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logAction("get_service_status", map[string]any{"service": name})

	service := strings.TrimSpace(name)
	if service == "" {
		services := make(map[string]string, len(i.services))
		for svc, health := range i.services {
			services[svc] = health
		}
		return map[string]any{
			"services":   services,
			"fleet_size": i.fleetSize,
			"timestamp":  i.timestamp(),
		}, nil
	}

	health, ok := i.services[service]
	if !ok {
		return nil, i.unknownService(service)
	}
	return map[string]any{
		"service":   service,
		"health":    health,
		"timestamp": i.timestamp(),
	}, nil
}

// ReadLogs returns up to lines recent log entries.
func (i *Infrastructure) ReadLogs(lines int) map[string]any {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logAction("read_logs", map[string]any{"lines": lines})

	entries := []string{
		"[INFO] Web server processing request - 200 OK",
		"[INFO] Database connection pool: 45/100 active",
		"[WARN] API response time: 234ms (threshold: 200ms)",
		"[INFO] Cache hit rate: 87%",
		"[INFO] Fleet health check: All instances responding",
	}
	if lines < 0 {
		lines = 0
	}
	if lines > len(entries) {
		lines = len(entries)
	}

	return map[string]any{
		"log_lines":       entries[:lines],
		"total_available": len(entries),
		"timestamp":       i.timestamp(),
	}
}

// RestartService restarts one service, returning it to a healthy state.
func (i *Infrastructure) RestartService(name string) (map[string]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logAction("restart_service", map[string]any{"service": name})

	service := strings.TrimSpace(name)
	if _, ok := i.services[service]; !ok {
		return nil, i.unknownService(service)
	}

	i.services[service] = "healthy"
	return map[string]any{
		"status":     "success",
		"action":     "restart",
		"service":    service,
		"new_health": "healthy",
		"message":    fmt.Sprintf("Service %q successfully restarted", service),
		"timestamp":  i.timestamp(),
	}, nil
}

// ScaleFleet resizes the instance fleet within fixed bounds.
func (i *Infrastructure) ScaleFleet(count int) (map[string]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logAction("scale_fleet", map[string]any{"target_count": count})

	if count < minFleetSize {
		return nil, validationErrorf("fleet size must be at least %d", minFleetSize)
	}
	if count > maxFleetSize {
		return nil, validationErrorf("fleet size cannot exceed %d instances", maxFleetSize)
	}

	oldSize := i.fleetSize
	i.fleetSize = count
	return map[string]any{
		"status":    "success",
		"action":    "scale",
		"old_size":  oldSize,
		"new_size":  count,
		"message":   fmt.Sprintf("Fleet scaled from %d to %d instances", oldSize, count),
		"timestamp": i.timestamp(),
	}, nil
}

// DeleteDatabase refuses. The policy layer blocks this tool globally; this
// refusal only exists in case a misconfigured gateway ever dispatches it.
func (i *Infrastructure) DeleteDatabase(name string) (map[string]any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logAction("delete_database", map[string]any{"db_name": name})

	return nil, executionErrorf("refusing to delete database %q: destructive operations must never reach the infrastructure layer", strings.TrimSpace(name))
}

// SetServiceHealth overrides one service's health for incident simulation.
func (i *Infrastructure) SetServiceHealth(name, status string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	service := strings.TrimSpace(name)
	if _, ok := i.services[service]; !ok {
		return i.unknownService(service)
	}
	i.services[service] = strings.TrimSpace(status)
	i.logAction("simulate_incident", map[string]any{"service": service, "status": strings.TrimSpace(status)})
	return nil
}

// Snapshot returns the current estate and the most recent actions.
func (i *Infrastructure) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()

	services := make(map[string]string, len(i.services))
	for svc, health := range i.services {
		services[svc] = health
	}
	recent := make([]ActionRecord, len(i.actions))
	copy(recent, i.actions)

	return Snapshot{
		Services:      services,
		FleetSize:     i.fleetSize,
		RecentActions: recent,
	}
}

// callers must hold i.mu.
func (i *Infrastructure) logAction(action string, details map[string]any) {
	i.actions = append(i.actions, ActionRecord{
		Timestamp: i.now().UTC(),
		Action:    action,
		Details:   details,
	})
	if len(i.actions) > actionLogLimit {
		i.actions = i.actions[len(i.actions)-actionLogLimit:]
	}
}

func (i *Infrastructure) serviceNames() []string {
	names := make([]string, 0, len(i.services))
	for name := range i.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (i *Infrastructure) unknownService(name string) error {
	return notFoundErrorf("service %q not found (available: %s)", name, strings.Join(i.serviceNames(), ", "))
}

func (i *Infrastructure) timestamp() string {
	return i.now().UTC().Format(time.RFC3339)
}
