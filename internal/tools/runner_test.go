package tools

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRunner() *Runner {
	return NewRunner(NewInfrastructure())
}

func requireToolStatus(t *testing.T, err error, status int) {
	t.Helper()
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, status, toolErr.StatusCode())
}

func TestCall_ListServices(t *testing.T) {
	runner := newTestRunner()

	result, err := runner.Call(context.Background(), "list_services", nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"api-gateway", "cache", "database", "web-server"}, result["services"])
}

func TestCall_ServiceStatusWholeEstate(t *testing.T) {
	runner := newTestRunner()

	result, err := runner.Call(context.Background(), "get_service_status", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, 3, result["fleet_size"])
	services, ok := result["services"].(map[string]string)
	require.True(t, ok)
	require.Equal(t, "healthy", services["database"])
}

func TestCall_ServiceStatusSingleService(t *testing.T) {
	runner := newTestRunner()

	result, err := runner.Call(context.Background(), "get_service_status", map[string]any{"service_name": "cache"})
	require.NoError(t, err)
	require.Equal(t, "cache", result["service"])
	require.Equal(t, "healthy", result["health"])
}

func TestCall_ServiceStatusUnknownService(t *testing.T) {
	runner := newTestRunner()

	_, err := runner.Call(context.Background(), "get_service_status", map[string]any{"service_name": "mainframe"})
	requireToolStatus(t, err, http.StatusNotFound)
	require.Contains(t, err.Error(), "mainframe")
	require.Contains(t, err.Error(), "available:")
}

func TestCall_ReadLogsDefaultsAndClamps(t *testing.T) {
	runner := newTestRunner()

	result, err := runner.Call(context.Background(), "read_logs", nil)
	require.NoError(t, err)
	require.Len(t, result["log_lines"], 5)

	result, err = runner.Call(context.Background(), "read_logs", map[string]any{"lines": 2})
	require.NoError(t, err)
	require.Len(t, result["log_lines"], 2)
}

func TestCall_RestartServiceHealsService(t *testing.T) {
	runner := newTestRunner()
	require.NoError(t, runner.Infrastructure().SetServiceHealth("web-server", "critical"))

	result, err := runner.Call(context.Background(), "restart_service", map[string]any{"service_name": "web-server"})
	require.NoError(t, err)
	require.Equal(t, "success", result["status"])
	require.Equal(t, "healthy", result["new_health"])

	require.Equal(t, "healthy", runner.Infrastructure().Snapshot().Services["web-server"])
}

func TestCall_RestartServiceRequiresName(t *testing.T) {
	runner := newTestRunner()

	_, err := runner.Call(context.Background(), "restart_service", map[string]any{})
	requireToolStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "service_name is required")
}

func TestCall_ScaleFleetBounds(t *testing.T) {
	runner := newTestRunner()

	result, err := runner.Call(context.Background(), "scale_fleet", map[string]any{"count": 10})
	require.NoError(t, err)
	require.Equal(t, 3, result["old_size"])
	require.Equal(t, 10, result["new_size"])

	_, err = runner.Call(context.Background(), "scale_fleet", map[string]any{"count": 0})
	requireToolStatus(t, err, http.StatusBadRequest)

	_, err = runner.Call(context.Background(), "scale_fleet", map[string]any{"count": 101})
	requireToolStatus(t, err, http.StatusBadRequest)

	_, err = runner.Call(context.Background(), "scale_fleet", map[string]any{})
	requireToolStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "count is required")
}

func TestCall_DeleteDatabaseAlwaysRefuses(t *testing.T) {
	runner := newTestRunner()

	_, err := runner.Call(context.Background(), "delete_database", map[string]any{"db_name": "prod"})
	requireToolStatus(t, err, http.StatusInternalServerError)
	require.Contains(t, err.Error(), "refusing to delete database")
}

func TestCall_UnknownToolAndUnknownArgs(t *testing.T) {
	runner := newTestRunner()

	_, err := runner.Call(context.Background(), "provision_cluster", nil)
	requireToolStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "not implemented")

	_, err = runner.Call(context.Background(), "read_logs", map[string]any{"lines": 3, "verbose": true})
	requireToolStatus(t, err, http.StatusBadRequest)
}

func TestCall_CanceledContext(t *testing.T) {
	runner := newTestRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Call(ctx, "list_services", nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.False(t, errors.Is(err, context.Canceled))
	require.Contains(t, err.Error(), "aborted")
}

func TestInfrastructure_ActionLogRecordsExecutions(t *testing.T) {
	runner := newTestRunner()

	_, err := runner.Call(context.Background(), "list_services", nil)
	require.NoError(t, err)
	_, err = runner.Call(context.Background(), "scale_fleet", map[string]any{"count": 5})
	require.NoError(t, err)

	snapshot := runner.Infrastructure().Snapshot()
	require.Len(t, snapshot.RecentActions, 2)
	require.Equal(t, "list_services", snapshot.RecentActions[0].Action)
	require.Equal(t, "scale_fleet", snapshot.RecentActions[1].Action)
	require.Equal(t, 5, snapshot.FleetSize)
}

func TestInfrastructure_ActionLogBounded(t *testing.T) {
	infra := NewInfrastructure()
	for i := 0; i < actionLogLimit+20; i++ {
		infra.ListServices()
	}
	require.Len(t, infra.Snapshot().RecentActions, actionLogLimit)
}
