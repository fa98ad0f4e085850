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

// Error represents a typed failure inside the invocation workflow.
//
// # Description
//
// Carries a machine-readable code so callers can branch on the failure
// class without matching message text. Classification errors force the
// fallback path; tool execution errors degrade to a soft-failure answer;
// precondition errors indicate a routing invariant was violated.
type Error struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Retryable indicates if the error might resolve on retry.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Common workflow error codes.
const (
	// ErrCodeClassifyTimeout covers classification calls that exceeded
	// their deadline or were cancelled.
	ErrCodeClassifyTimeout = "CLASSIFY_TIMEOUT"

	// ErrCodeClassifyParse covers malformed or invalid classifier output.
	ErrCodeClassifyParse = "CLASSIFY_PARSE"

	// ErrCodeClassifyUpstream covers LLM transport and API failures.
	ErrCodeClassifyUpstream = "CLASSIFY_UPSTREAM"

	// ErrCodeToolExecution covers downstream tool-call failures.
	ErrCodeToolExecution = "TOOL_EXECUTION"

	// ErrCodePrecondition indicates a stage was entered with state that
	// the router should have made impossible.
	ErrCodePrecondition = "PRECONDITION"
)

// NewError creates a new workflow Error.
func NewError(code, message string, retryable bool) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}
