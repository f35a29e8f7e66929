package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/proxi-ops/proxi-mcp/internal/audit"
	"github.com/proxi-ops/proxi-mcp/internal/httputil"
	"github.com/proxi-ops/proxi-mcp/internal/metrics"
	"github.com/proxi-ops/proxi-mcp/internal/policy"
)

type executeToolRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

type executeToolResponse struct {
	Success         bool             `json:"success"`
	PolicyViolation bool             `json:"policy_violation,omitempty"`
	Decision        *policy.Decision `json:"decision,omitempty"`
	Result          map[string]any   `json:"result,omitempty"`
	Error           string           `json:"error,omitempty"`
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

type simulateIncidentRequest struct {
	Service string `json:"service"`
	Status  string `json:"status,omitempty"`
}

func (s *HTTPServer) handleToolCatalog(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"tools":                   s.registry.List(),
		"current_mode":            s.gate.CurrentMode(),
		"allowed_in_current_mode": s.gate.AllowedTools(),
	})
}

// handleExecuteTool is the fail-closed gateway: it validates every request
// against the policy engine before any tool is dispatched, and turns a denial
// into a structured refusal instead of an execution.
func (s *HTTPServer) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := middleware.GetReqID(r.Context())

	var req executeToolRequest
	auditEvent := audit.ToolCallCompletion{
		RequestID: requestID,
		Result:    "error",
	}
	defer func() {
		auditEvent.ToolName = strings.TrimSpace(req.ToolName)
		auditEvent.Arguments = req.Arguments
		auditEvent.Duration = time.Since(started)
		s.audit.Complete(auditEvent)
	}()

	principal, err := s.authn.Authenticate(r)
	if err != nil {
		status, detail := authFailureResponse(err)
		auditEvent.ErrorDetail = detail
		auditEvent.ResponseCode = status
		httputil.RespondProblem(w, r, status, detail)
		return
	}
	auditEvent.CallerSub = principal.Subject

	if err := decodeJSONStrict(r, &req); err != nil {
		detail := fmt.Sprintf("invalid request body: %v", err)
		auditEvent.ErrorDetail = detail
		auditEvent.ResponseCode = http.StatusBadRequest
		httputil.RespondProblem(w, r, http.StatusBadRequest, detail)
		return
	}

	name := strings.TrimSpace(req.ToolName)
	if name == "" {
		auditEvent.ErrorDetail = "tool_name is required"
		auditEvent.ResponseCode = http.StatusBadRequest
		httputil.RespondProblem(w, r, http.StatusBadRequest, "tool_name is required")
		return
	}

	tool, ok := s.registry.Lookup(name)
	if !ok {
		detail := fmt.Sprintf("unknown tool: %s", name)
		auditEvent.ErrorDetail = detail
		auditEvent.ResponseCode = http.StatusNotFound
		httputil.RespondProblem(w, r, http.StatusNotFound, detail)
		return
	}

	decision, err := s.gate.Validate(tool.Name, req.Arguments, req.Context)
	if err != nil {
		var unknownTool *policy.UnknownToolError
		status := http.StatusInternalServerError
		if errors.As(err, &unknownTool) {
			status = http.StatusBadRequest
		}
		auditEvent.ErrorDetail = err.Error()
		auditEvent.ResponseCode = status
		httputil.RespondProblem(w, r, status, err.Error())
		return
	}
	auditEvent.Decision = decision
	metrics.ObserveDecision(string(decision.RuleMatched), decision.Allowed)

	if !decision.Allowed {
		auditEvent.Result = "denied"
		auditEvent.ResponseCode = http.StatusForbidden
		s.logger.Info().
			Str("tool", tool.Name).
			Str("rule_matched", string(decision.RuleMatched)).
			Msg("tool call refused by policy")
		httputil.RespondJSON(w, http.StatusForbidden, executeToolResponse{
			Success:         false,
			PolicyViolation: true,
			Decision:        &decision,
			Error:           fmt.Sprintf("policy violation: %s", decision.Reason),
		})
		return
	}

	s.logger.Info().Str("tool", tool.Name).Str("mode", decision.Mode).Msg("dispatching tool call")
	payload, err := s.caller.Call(r.Context(), tool.Name, req.Arguments)
	if err != nil {
		metrics.ObserveExecution(tool.Name, "error")
		auditEvent.ErrorDetail = toolErrorMessage(err)
		auditEvent.ResponseCode = toolErrorStatus(err)
		httputil.RespondProblem(w, r, toolErrorStatus(err), toolErrorMessage(err))
		return
	}

	metrics.ObserveExecution(tool.Name, "success")
	auditEvent.Result = "success"
	auditEvent.ResponseCode = http.StatusOK
	httputil.RespondJSON(w, http.StatusOK, executeToolResponse{
		Success:  true,
		Decision: &decision,
		Result:   payload,
	})
}

func (s *HTTPServer) handlePolicyStatus(w http.ResponseWriter, _ *http.Request) {
	summary := s.gate.Summary()
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"current_mode":   summary.Mode,
		"description":    summary.Description,
		"allowed_tools":  summary.AllowedTools,
		"blocked_tools":  summary.BlockedTools,
		"global_blocked": summary.GlobalBlocked,
		"summary":        summary.String(),
	})
}

func (s *HTTPServer) handleSetMode(w http.ResponseWriter, r *http.Request) {
	principal, err := s.authn.Authenticate(r)
	if err != nil {
		status, detail := authFailureResponse(err)
		httputil.RespondProblem(w, r, status, detail)
		return
	}

	var req setModeRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	previous := s.gate.CurrentMode()
	if err := s.gate.SetMode(req.Mode); err != nil {
		var unknownMode *policy.UnknownModeError
		if errors.As(err, &unknownMode) {
			httputil.RespondProblem(w, r, http.StatusBadRequest, unknownMode.Error())
			return
		}
		httputil.RespondProblem(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	s.audit.ModeChange(previous, s.gate.CurrentMode(), principal.Subject)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"previous_mode": previous,
		"new_mode":      s.gate.CurrentMode(),
		"allowed_tools": s.gate.AllowedTools(),
	})
}

func (s *HTTPServer) handleReloadPolicy(w http.ResponseWriter, r *http.Request) {
	principal, err := s.authn.Authenticate(r)
	if err != nil {
		status, detail := authFailureResponse(err)
		httputil.RespondProblem(w, r, status, detail)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, fmt.Sprintf("reading policy document: %v", err))
		return
	}

	if err := s.gate.Reload(raw); err != nil {
		var formatErr *policy.FormatError
		if errors.As(err, &formatErr) {
			httputil.RespondProblem(w, r, http.StatusBadRequest, formatErr.Error())
			return
		}
		httputil.RespondProblem(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	summary := s.gate.Summary()
	s.audit.PolicyReload(summary.Policy, summary.Mode, principal.Subject)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"current_mode":  summary.Mode,
		"allowed_tools": summary.AllowedTools,
	})
}

func (s *HTTPServer) handleInfrastructureStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, s.infra.Snapshot())
}

func (s *HTTPServer) handleSimulateIncident(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authn.Authenticate(r); err != nil {
		status, detail := authFailureResponse(err)
		httputil.RespondProblem(w, r, status, detail)
		return
	}

	var req simulateIncidentRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "critical"
	}

	if err := s.infra.SetServiceHealth(req.Service, status); err != nil {
		httputil.RespondProblem(w, r, toolErrorStatus(err), toolErrorMessage(err))
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("simulated incident: %s set to %s", strings.TrimSpace(req.Service), status),
	})
}

func decodeJSONStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("request must contain exactly one JSON object")
	}
	return nil
}
