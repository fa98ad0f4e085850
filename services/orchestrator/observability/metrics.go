// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Counters and histograms covering the invocation workflow: request
// totals by route and status, intent classification latency, and
// downstream tool-call latency. Metrics are exposed via the /metrics
// endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for workflow metrics
const workflowSubsystem = "orchestrator"

// WorkflowMetrics holds all Prometheus metrics for the invocation workflow.
//
// # Fields
//
//   - InvocationsTotal: Counter of invocations by route and status.
//   - ClassificationSeconds: Histogram of intent classification latency.
//   - ClassificationErrorsTotal: Counter of classifier failures by code.
//   - ToolCallSeconds: Histogram of downstream tool-call latency.
//   - ToolCallErrorsTotal: Counter of tool-call failures by tool.
//
// # Thread Safety
//
// All operations are thread-safe.
type WorkflowMetrics struct {
	// InvocationsTotal counts invocations by route and status.
	// Labels: route (execute_tool, use_fallback), status (success, error)
	InvocationsTotal *prometheus.CounterVec

	// ClassificationSeconds measures intent classification latency.
	// Labels: backend (anthropic, openai)
	ClassificationSeconds *prometheus.HistogramVec

	// ClassificationErrorsTotal counts classifier failures.
	// Labels: code (CLASSIFY_TIMEOUT, CLASSIFY_PARSE, CLASSIFY_UPSTREAM)
	ClassificationErrorsTotal *prometheus.CounterVec

	// ToolCallSeconds measures downstream tool-call latency.
	// Labels: tool, status (success, error)
	ToolCallSeconds *prometheus.HistogramVec

	// ToolCallErrorsTotal counts tool-call failures by tool.
	// Labels: tool
	ToolCallErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of WorkflowMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *WorkflowMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Call once at startup.
//
// # Outputs
//
//   - *WorkflowMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *WorkflowMetrics {
	DefaultMetrics = &WorkflowMetrics{
		InvocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: workflowSubsystem,
				Name:      "invocations_total",
				Help:      "Total invocations by route and status",
			},
			[]string{"route", "status"},
		),

		ClassificationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: workflowSubsystem,
				Name:      "classification_seconds",
				Help:      "Intent classification latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"backend"},
		),

		ClassificationErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: workflowSubsystem,
				Name:      "classification_errors_total",
				Help:      "Total intent classification failures by error code",
			},
			[]string{"code"},
		),

		ToolCallSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: workflowSubsystem,
				Name:      "tool_call_seconds",
				Help:      "Downstream tool-call latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"tool", "status"},
		),

		ToolCallErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: workflowSubsystem,
				Name:      "tool_call_errors_total",
				Help:      "Total downstream tool-call failures by tool",
			},
			[]string{"tool"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordInvocation records a completed invocation.
//
// # Inputs
//
//   - route: The route taken (execute_tool or use_fallback).
//   - success: Whether the invocation completed without a soft failure.
func (m *WorkflowMetrics) RecordInvocation(route string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.InvocationsTotal.WithLabelValues(route, status).Inc()
}

// RecordClassification records a classification attempt.
//
// # Inputs
//
//   - backend: The LLM backend name.
//   - seconds: Classification latency in seconds.
func (m *WorkflowMetrics) RecordClassification(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.ClassificationSeconds.WithLabelValues(backend).Observe(seconds)
}

// RecordClassificationError records a classifier failure.
//
// # Inputs
//
//   - code: The workflow error code.
func (m *WorkflowMetrics) RecordClassificationError(code string) {
	if m == nil {
		return
	}
	m.ClassificationErrorsTotal.WithLabelValues(code).Inc()
}

// RecordToolCall records a downstream tool call.
//
// # Inputs
//
//   - tool: The tool name.
//   - seconds: Call latency in seconds.
//   - success: Whether the call returned a 2xx response.
func (m *WorkflowMetrics) RecordToolCall(tool string, seconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
		m.ToolCallErrorsTotal.WithLabelValues(tool).Inc()
	}
	m.ToolCallSeconds.WithLabelValues(tool, status).Observe(seconds)
}
