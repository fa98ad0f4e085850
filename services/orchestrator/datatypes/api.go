// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// =============================================================================
// Invocation API (POST /invocations)
// =============================================================================

// InvocationContext carries optional caller context forwarded by the
// upstream gateway. All fields are opaque to the pipeline.
type InvocationContext struct {
	UserName string `json:"userName,omitempty"`
	UserType string `json:"userType,omitempty"`
	Source   string `json:"source,omitempty"`
	PromptID string `json:"promptId,omitempty"`
}

// InvocationRequest is the request body for POST /invocations.
type InvocationRequest struct {
	// UserPrompt is the user's question or request.
	UserPrompt string `json:"userPrompt" binding:"required"`

	// SessionID correlates this invocation with a conversation. Optional;
	// a UUID is generated when empty.
	SessionID string `json:"sessionId"`

	// Context is optional caller-supplied context.
	Context *InvocationContext `json:"context,omitempty"`
}

// SelectedTool describes the classifier's choice in the response.
type SelectedTool struct {
	ToolName   string  `json:"toolName"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// InvocationResponse is the response body for POST /invocations.
//
// Description:
//
//	Always well-formed: every request, including ones where the classifier
//	or a tool backend failed, produces a response with a non-empty
//	ResponseText. Success is false only for acknowledged soft failures
//	(tool execution or classification errors recovered via fallback).
type InvocationResponse struct {
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	Timestamp       time.Time     `json:"timestamp"`
	ExecutionTimeMs float64       `json:"executionTimeMs"`
	SessionID       string        `json:"sessionId"`
	SelectedTool    *SelectedTool `json:"selectedTool,omitempty"`
	Confidence      float64       `json:"confidence"`
	ResponseText    string        `json:"responseText"`
}

// =============================================================================
// Health API (GET /ping, GET /health)
// =============================================================================

// HealthResponse is the response body for the health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
