// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/switchboard/services/llm"
	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
	"github.com/AleutianAI/switchboard/services/orchestrator/observability"
	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
)

// DefaultToolTimeout bounds a single downstream tool call.
const DefaultToolTimeout = 10 * time.Second

// =============================================================================
// Dispatchers
// =============================================================================

// Dispatcher sends a query to a single downstream tool and returns its
// answer text.
type Dispatcher interface {
	Dispatch(ctx context.Context, tool registry.ToolDefinition, query, sessionID string) (string, error)
}

// toolRequest is the JSON body posted to a tool endpoint.
type toolRequest struct {
	UserPrompt string `json:"userPrompt"`
	SessionID  string `json:"sessionId"`
}

// toolResponse is the expected shape of a tool's JSON reply. Tools that
// return something else are read as raw text.
type toolResponse struct {
	Answer string `json:"answer"`
}

// HTTPDispatcher posts the query to the tool's registered endpoint.
//
// # Thread Safety
//
// Safe for concurrent use; the embedded http.Client is shared.
type HTTPDispatcher struct {
	httpClient *http.Client
}

// NewHTTPDispatcher creates a dispatcher with a per-call timeout.
// Values <= 0 use DefaultToolTimeout.
func NewHTTPDispatcher(timeout time.Duration) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &HTTPDispatcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dispatch implements the Dispatcher interface.
//
// # Description
//
// POSTs {userPrompt, sessionId} to the tool endpoint. A 2xx reply with
// an `answer` JSON field returns that field; any other 2xx body is
// returned verbatim. Non-2xx, transport, and timeout failures return an
// error for the executor to absorb.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, tool registry.ToolDefinition, query, sessionID string) (string, error) {
	payload, err := json.Marshal(toolRequest{UserPrompt: query, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("marshaling tool request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tool.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("creating tool request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", tool.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s response (status %d): %w", tool.Name, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s returned status %d", tool.Name, resp.StatusCode)
	}

	var parsed toolResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Answer != "" {
		return parsed.Answer, nil
	}
	return string(body), nil
}

// StubDispatcher serves canned per-tool answers without any network call.
//
// # Description
//
// Used by tests and local runs where the downstream agents are not
// deployed. Tools without a canned entry get a generic acknowledgement
// that names the tool and echoes the query.
type StubDispatcher struct {
	responses map[string]string
}

// NewStubDispatcher creates a stub with the default canned answers.
func NewStubDispatcher() *StubDispatcher {
	return &StubDispatcher{responses: map[string]string{
		"IBTAgent":      "Your insurance benefits include coverage for preventive care, hospitalization, and emergency services. Your current deductible is $1,500 with 80/20 coinsurance after deductible.",
		"ClaimsAgent":   "Your recent claim (Claim #CLM-2024-12345) has been processed and approved for $2,500. Payment will be deposited within 5-7 business days.",
		"SupportAgent":  "We're here to help! Our support team is available 24/7. You can reach us via phone, email, or live chat.",
		"DocumentAgent": "Your insurance documents have been retrieved. You can download your policy summary, coverage details, and member ID card from your account.",
	}}
}

// Dispatch implements the Dispatcher interface.
func (d *StubDispatcher) Dispatch(_ context.Context, tool registry.ToolDefinition, query, _ string) (string, error) {
	if answer, ok := d.responses[tool.Name]; ok {
		return answer, nil
	}
	return fmt.Sprintf("Tool '%s' executed successfully for: %s", tool.Name, query), nil
}

// =============================================================================
// Tool Executor
// =============================================================================

// ToolExecutor runs the selected tool and records the outcome in the
// workflow state.
//
// # Description
//
// The executor requires an executable classification (non-empty tool
// name, not a sentinel); the router guarantees this, so a violation is a
// precondition error rather than a user-facing condition. Downstream
// failures are absorbed: they produce a failed ToolResult and a generic
// answer but never propagate as errors.
//
// # Thread Safety
//
// Safe for concurrent use.
type ToolExecutor struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *observability.WorkflowMetrics
}

// NewToolExecutor creates an executor around a dispatcher.
//
// # Inputs
//
//   - dispatcher: Where tool calls go. Must not be nil; use
//     NewStubDispatcher() when no downstream agents are deployed.
//   - metrics: Workflow metrics. May be nil.
func NewToolExecutor(dispatcher Dispatcher, metrics *observability.WorkflowMetrics) *ToolExecutor {
	return &ToolExecutor{
		dispatcher: dispatcher,
		logger:     slog.Default().With(slog.String("component", "tool_executor")),
		metrics:    metrics,
	}
}

// Execute runs the classified tool and writes ToolResult + FinalAnswer.
//
// # Inputs
//
//   - ctx: Request context.
//   - state: The workflow state. Classification and Registry are read;
//     ToolResult and FinalAnswer are written.
//
// # Outputs
//
//   - error: Non-nil only for a PRECONDITION violation. Tool failures
//     are reported through state, not the error return.
func (e *ToolExecutor) Execute(ctx context.Context, state *datatypes.WorkflowState) error {
	ctx, span := intentTracer.Start(ctx, "workflow.ExecuteTool")
	defer span.End()

	if !state.Classification.IsExecutable() {
		err := NewError(ErrCodePrecondition,
			"tool executor entered without an executable classification", false)
		e.logger.Error("routing invariant violated",
			slog.String("session_id", state.SessionID),
			slog.Any("classification", state.Classification),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "precondition violated")
		return err
	}

	toolName := state.Classification.ToolName
	span.SetAttributes(attribute.String("tool", toolName))

	tool, ok := state.Registry.Get(toolName)
	if !ok {
		// The classifier named a tool the registry does not have. Treat
		// it like a failed call so the user still gets an answer.
		e.logger.Warn("classifier selected unregistered tool",
			slog.String("tool", toolName),
			slog.String("session_id", state.SessionID),
		)
		e.metrics.RecordToolCall(toolName, 0, false)
		state.ToolResult = &datatypes.ToolResult{
			ToolName:  toolName,
			Succeeded: false,
			Error:     fmt.Sprintf("tool %q is not registered", toolName),
		}
		state.FinalAnswer = FallbackServiceUnavailable
		return nil
	}

	e.logger.Info("executing tool",
		slog.String("tool", toolName),
		slog.String("session_id", state.SessionID),
		slog.Float64("confidence", state.Classification.Confidence),
	)

	start := time.Now()
	answer, err := e.dispatcher.Dispatch(ctx, tool, state.Query, state.SessionID)
	elapsed := time.Since(start)

	if err != nil {
		werr := NewError(ErrCodeToolExecution, llm.SafeLogString(err.Error()), true)
		e.logger.Warn("tool call failed",
			slog.String("tool", toolName),
			slog.String("error", werr.Message),
			slog.Duration("elapsed", elapsed),
		)
		e.metrics.RecordToolCall(toolName, elapsed.Seconds(), false)
		span.RecordError(werr)
		span.SetStatus(codes.Error, "tool call failed")
		state.ToolResult = &datatypes.ToolResult{
			ToolName:  toolName,
			Succeeded: false,
			Error:     werr.Message,
		}
		state.FinalAnswer = FallbackServiceUnavailable
		return nil
	}

	e.metrics.RecordToolCall(toolName, elapsed.Seconds(), true)
	e.logger.Info("tool call completed",
		slog.String("tool", toolName),
		slog.Duration("elapsed", elapsed),
		slog.Int("answer_length", len(answer)),
	)

	state.ToolResult = &datatypes.ToolResult{
		ToolName:     toolName,
		Succeeded:    true,
		ResponseBody: answer,
	}
	state.FinalAnswer = strings.TrimSpace(answer)
	return nil
}
