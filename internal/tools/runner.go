package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ToolError carries an HTTP-style status code and message for tool failures.
type ToolError struct {
	statusCode int
	message    string
}

// Error implements error.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.message)
}

// StatusCode returns the attached status code.
func (e *ToolError) StatusCode() int {
	if e == nil || e.statusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.statusCode
}

// Runner executes policy-approved tool calls against the mock infrastructure.
// It performs no authorization itself; the gateway validates first.
type Runner struct {
	infra *Infrastructure
}

// NewRunner creates a runner over the given infrastructure.
func NewRunner(infra *Infrastructure) *Runner {
	return &Runner{infra: infra}
}

// Infrastructure exposes the backing estate for diagnostic endpoints.
func (r *Runner) Infrastructure() *Infrastructure {
	return r.infra
}

// Call executes one tool by name and returns JSON-like map content.
func (r *Runner) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, executionErrorf("tool call aborted: %v", err)
	}

	switch strings.TrimSpace(name) {
	case "list_services":
		var req struct{}
		if err := decodeArgsStrict(args, &req); err != nil {
			return nil, err
		}
		return r.infra.ListServices(), nil

	case "get_service_status":
		var req struct {
			ServiceName string `json:"service_name"`
		}
		if err := decodeArgsStrict(args, &req); err != nil {
			return nil, err
		}
		return r.infra.ServiceStatus(req.ServiceName)

	case "read_logs":
		req := struct {
			Lines *int `json:"lines"`
		}{}
		if err := decodeArgsStrict(args, &req); err != nil {
			return nil, err
		}
		lines := 10
		if req.Lines != nil {
			lines = *req.Lines
		}
		return r.infra.ReadLogs(lines), nil

	case "restart_service":
		var req struct {
			ServiceName string `json:"service_name"`
		}
		if err := decodeArgsStrict(args, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.ServiceName) == "" {
			return nil, validationErrorf("service_name is required")
		}
		return r.infra.RestartService(req.ServiceName)

	case "scale_fleet":
		req := struct {
			Count *int `json:"count"`
		}{}
		if err := decodeArgsStrict(args, &req); err != nil {
			return nil, err
		}
		if req.Count == nil {
			return nil, validationErrorf("count is required")
		}
		return r.infra.ScaleFleet(*req.Count)

	case "delete_database":
		var req struct {
			DBName string `json:"db_name"`
		}
		if err := decodeArgsStrict(args, &req); err != nil {
			return nil, err
		}
		return r.infra.DeleteDatabase(req.DBName)

	default:
		return nil, validationErrorf("tool %s is not implemented", strings.TrimSpace(name))
	}
}

func validationErrorf(format string, args ...any) error {
	return &ToolError{
		statusCode: http.StatusBadRequest,
		message:    fmt.Sprintf(format, args...),
	}
}

func notFoundErrorf(format string, args ...any) error {
	return &ToolError{
		statusCode: http.StatusNotFound,
		message:    fmt.Sprintf(format, args...),
	}
}

func executionErrorf(format string, args ...any) error {
	return &ToolError{
		statusCode: http.StatusInternalServerError,
		message:    fmt.Sprintf(format, args...),
	}
}

func decodeArgsStrict(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	if decoder.More() {
		return validationErrorf("tool arguments must be a single JSON object")
	}
	return nil
}
