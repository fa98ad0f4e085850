// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the Switchboard
// orchestrator: the per-request workflow state, the classifier output, the
// tool execution result, and the HTTP API request/response shapes.
//
// # Thread Safety
//
// WorkflowState is owned exclusively by the pipeline instance that created
// it and is never shared across requests. All other types are plain value
// types.
package datatypes

import (
	"github.com/google/uuid"

	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
)

// =============================================================================
// Sentinel Tool Names
// =============================================================================

// Sentinel tool names returned by the intent classifier. These are reserved
// values that never correspond to a registered tool and always route to the
// fallback composer.
const (
	// SentinelNoTool indicates no registered tool matches the query, the
	// query is out of domain, or the model's own confidence is too low.
	SentinelNoTool = "NO_TOOL"

	// SentinelConversational indicates a greeting, thanks, or farewell.
	// The classifier supplies a direct response for these.
	SentinelConversational = "CONVERSATIONAL"
)

// =============================================================================
// Classification
// =============================================================================

// Classification is the structured output of the intent-analysis stage.
//
// Description:
//
//	Holds the classifier's tool choice, its confidence on a 0-10 scale,
//	a human-readable rationale, and (for conversational queries only) a
//	direct response to return verbatim. Written once by the intent
//	classifier and read-only afterwards.
type Classification struct {
	// ToolName is a registered tool name, SentinelNoTool, or
	// SentinelConversational. Never empty after a successful parse.
	ToolName string `json:"toolName"`

	// Confidence is the classifier's certainty, 0.0 through 10.0.
	Confidence float64 `json:"confidence"`

	// Reasoning explains the selection, for observability.
	Reasoning string `json:"reasoning"`

	// DirectResponse is populated only when ToolName is
	// SentinelConversational.
	DirectResponse string `json:"directResponse,omitempty"`
}

// IsExecutable reports whether the classification names a real tool rather
// than a sentinel.
func (c *Classification) IsExecutable() bool {
	return c != nil && c.ToolName != "" &&
		c.ToolName != SentinelNoTool && c.ToolName != SentinelConversational
}

// =============================================================================
// Tool Result
// =============================================================================

// ToolResult captures the outcome of one tool backend invocation.
type ToolResult struct {
	// ToolName is the tool that was dispatched.
	ToolName string `json:"toolName"`

	// Succeeded is false when the backend was unreachable, timed out, or
	// returned a non-success status.
	Succeeded bool `json:"succeeded"`

	// ResponseBody is the raw payload from the tool backend.
	ResponseBody string `json:"responseBody,omitempty"`

	// Error holds a short diagnostic when Succeeded is false.
	Error string `json:"error,omitempty"`
}

// =============================================================================
// Workflow State
// =============================================================================

// WorkflowState is the single mutable record threaded through every
// pipeline stage.
//
// Description:
//
//	Created fresh per inbound request and discarded after the response is
//	emitted. Query and SessionID are immutable after creation. Registry is
//	a read-only snapshot shared across requests. Classification and
//	ToolResult are each written at most once by their owning stage.
//	FinalAnswer is written exactly once, by whichever terminal stage runs.
//
// Thread Safety: NOT safe for concurrent use. Each request owns its state.
type WorkflowState struct {
	// Query is the user's question or request. Immutable.
	Query string

	// SessionID is an opaque correlation id. Immutable.
	SessionID string

	// Context carries optional caller-supplied invocation context.
	Context *InvocationContext

	// Registry is the process-wide tool registry snapshot. Read-only.
	Registry *registry.Registry

	// Classification is set once by the intent classifier. Nil until then,
	// and nil when classification failed (the driver then forces fallback).
	Classification *Classification

	// ToolResult is set once by the tool executor on the execute branch.
	ToolResult *ToolResult

	// FinalAnswer is empty until a terminal stage runs, non-empty after.
	FinalAnswer string
}

// NewWorkflowState creates the per-request state.
//
// Description:
//
//	Binds the immutable inputs and the shared registry snapshot. When the
//	caller supplied no session id, a fresh UUID is generated so every
//	response carries a usable correlation id.
//
// Inputs:
//   - query: The user's question. Must be non-empty (validated at the API edge).
//   - sessionID: Caller-supplied correlation id. May be empty.
//   - ctx: Optional invocation context from the caller. May be nil.
//   - reg: The loaded tool registry. Must not be nil.
//
// Outputs:
//   - *WorkflowState: Fresh state ready for the pipeline. Never nil.
func NewWorkflowState(query, sessionID string, ctx *InvocationContext, reg *registry.Registry) *WorkflowState {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &WorkflowState{
		Query:     query,
		SessionID: sessionID,
		Context:   ctx,
		Registry:  reg,
	}
}
