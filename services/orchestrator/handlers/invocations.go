// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin endpoint handlers for the
// orchestrator API.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
	"github.com/AleutianAI/switchboard/services/orchestrator/workflow"
)

var handlerTracer = otel.Tracer("aleutian.orchestrator.handlers")

// HandleInvocation runs the full workflow for one query.
//
// # Description
//
// Binds the camelCase request body, builds a fresh per-request workflow
// state over the shared registry snapshot, and drives the pipeline to
// completion. The response is always well-formed: soft failures come
// back with success=false and a fallback answer, never a 5xx.
//
// # Inputs
//
//   - pipeline: The assembled workflow pipeline.
//   - reg: The immutable tool registry.
//
// # Outputs
//
//   - gin.HandlerFunc: The bound handler.
func HandleInvocation(pipeline *workflow.Pipeline, reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleInvocation")
		defer span.End()

		var req datatypes.InvocationRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the invocation request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: userPrompt is required"})
			return
		}

		start := time.Now()
		state := datatypes.NewWorkflowState(req.UserPrompt, req.SessionID, req.Context, reg)
		span.SetAttributes(attribute.String("session_id", state.SessionID))

		result := pipeline.Run(ctx, state)
		elapsed := time.Since(start)

		resp := datatypes.InvocationResponse{
			Success:         !result.SoftFailure,
			Message:         invocationMessage(result),
			Timestamp:       time.Now().UTC(),
			ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
			SessionID:       state.SessionID,
			ResponseText:    result.FinalAnswer,
		}
		if result.Classification != nil {
			resp.Confidence = result.Classification.Confidence
			resp.SelectedTool = &datatypes.SelectedTool{
				ToolName:   result.Classification.ToolName,
				Confidence: result.Classification.Confidence,
				Reasoning:  result.Classification.Reasoning,
			}
		}

		span.SetAttributes(
			attribute.String("decision", string(result.Decision)),
			attribute.Bool("soft_failure", result.SoftFailure),
		)
		c.JSON(http.StatusOK, resp)
	}
}

// invocationMessage summarizes the workflow outcome for the response body.
func invocationMessage(result *workflow.Result) string {
	switch {
	case result.SoftFailure:
		return "Request completed with a degraded response"
	case result.Decision == workflow.DecisionExecuteTool:
		return "Request routed to tool"
	default:
		return "Request answered without tool execution"
	}
}

// HandlePing is the liveness probe.
func HandlePing() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// HandleHealth reports service identity and readiness.
//
// # Inputs
//
//   - reg: The loaded registry; its size is reported for quick sanity
//     checks from monitoring.
func HandleHealth(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "orchestrator",
			"tools":     reg.Len(),
			"timestamp": time.Now().UTC(),
		})
	}
}
