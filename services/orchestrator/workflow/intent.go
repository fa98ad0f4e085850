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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/switchboard/services/llm"
	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
	"github.com/AleutianAI/switchboard/services/orchestrator/observability"
)

var intentTracer = otel.Tracer("aleutian.orchestrator.workflow")

// DefaultClassifyTimeout bounds a single classification call.
const DefaultClassifyTimeout = 30 * time.Second

// classifierOutput is the JSON contract the classifier model must return.
// Pointer fields distinguish a missing key from a zero value.
type classifierOutput struct {
	SelectedTool   *string  `json:"selected_tool"`
	Confidence     *float64 `json:"confidence_score"`
	Reasoning      string   `json:"reasoning"`
	DirectResponse string   `json:"direct_response"`
}

// IntentClassifier turns a free-text query into a Classification using a
// single LLM call.
//
// # Description
//
// Renders the registry into the system prompt, sends one Chat request
// with a bounded timeout, and strictly parses the JSON reply. There are
// no retries here: any failure surfaces as a typed *Error and the
// pipeline forces the fallback path.
//
// # Thread Safety
//
// Safe for concurrent use; all per-request state lives on the stack.
type IntentClassifier struct {
	client  llm.LLMClient
	prompts *PromptBuilder
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.WorkflowMetrics
}

// NewIntentClassifier creates a classifier around an LLM client.
//
// # Inputs
//
//   - client: The LLM backend. Must not be nil.
//   - timeout: Per-call deadline. Values <= 0 use DefaultClassifyTimeout.
//   - metrics: Workflow metrics. May be nil (recording becomes a no-op).
//
// # Outputs
//
//   - *IntentClassifier: The configured classifier.
//   - error: Non-nil if the prompt template fails to parse.
func NewIntentClassifier(client llm.LLMClient, timeout time.Duration, metrics *observability.WorkflowMetrics) (*IntentClassifier, error) {
	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("workflow: building prompt templates: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	return &IntentClassifier{
		client:  client,
		prompts: prompts,
		timeout: timeout,
		logger:  slog.Default().With(slog.String("component", "intent_classifier")),
		metrics: metrics,
	}, nil
}

// Classify selects a tool (or sentinel) for the query in the state.
//
// # Description
//
// The single LLM stage of the workflow. On success the returned
// Classification carries the tool name, confidence in [0,10], the model's
// reasoning, and a direct response for conversational queries.
//
// # Inputs
//
//   - ctx: Request context; cancellation aborts the LLM call.
//   - state: The workflow state. Query and Registry are read, nothing is
//     written here (the pipeline owns state mutation).
//
// # Outputs
//
//   - *datatypes.Classification: The parsed classification.
//   - error: A *Error with a CLASSIFY_* code on any failure.
func (c *IntentClassifier) Classify(ctx context.Context, state *datatypes.WorkflowState) (*datatypes.Classification, error) {
	ctx, span := intentTracer.Start(ctx, "workflow.Classify")
	defer span.End()

	systemPrompt, err := c.prompts.BuildSystemPrompt(state.Registry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rendering failed")
		return nil, NewError(ErrCodeClassifyUpstream,
			fmt.Sprintf("rendering system prompt: %v", err), false)
	}

	messages := []datatypes.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: c.prompts.BuildUserPrompt(state.Query)},
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.client.Chat(callCtx, messages, llm.GenerationParams{})
	elapsed := time.Since(start)
	c.metrics.RecordClassification(c.client.Model(), elapsed.Seconds())

	if err != nil {
		code := ErrCodeClassifyUpstream
		retryable := true
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			code = ErrCodeClassifyTimeout
		}
		c.metrics.RecordClassificationError(code)
		c.logger.Warn("classification call failed",
			slog.String("code", code),
			slog.String("error", llm.SafeLogString(err.Error())),
			slog.Duration("elapsed", elapsed),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification call failed")
		return nil, NewError(code, llm.SafeLogString(err.Error()), retryable)
	}

	classification, perr := parseClassifierOutput(raw)
	if perr != nil {
		c.metrics.RecordClassificationError(ErrCodeClassifyParse)
		c.logger.Warn("classifier returned unusable output",
			slog.String("error", perr.Error()),
			slog.Int("raw_length", len(raw)),
		)
		span.RecordError(perr)
		span.SetStatus(codes.Error, "classifier output parse failed")
		return nil, perr
	}

	span.SetAttributes(
		attribute.String("tool", classification.ToolName),
		attribute.Float64("confidence", classification.Confidence),
	)
	c.logger.Info("intent classified",
		slog.String("tool", classification.ToolName),
		slog.Float64("confidence", classification.Confidence),
		slog.String("session_id", state.SessionID),
		slog.Duration("elapsed", elapsed),
	)

	return classification, nil
}

// parseClassifierOutput strictly parses the model's JSON reply.
//
// # Description
//
// Strips surrounding markdown fences, unmarshals with explicit types
// (a string confidence is rejected, not coerced), and validates that the
// tool name is present and the confidence is within [0,10].
//
// # Outputs
//
//   - *datatypes.Classification: The validated classification.
//   - error: A *Error with code CLASSIFY_PARSE on any violation.
func parseClassifierOutput(raw string) (*datatypes.Classification, error) {
	cleaned := stripMarkdownFences(raw)
	if cleaned == "" {
		return nil, NewError(ErrCodeClassifyParse, "empty classifier response", false)
	}

	var out classifierOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, NewError(ErrCodeClassifyParse,
			fmt.Sprintf("unmarshaling classifier JSON: %v", err), false)
	}

	if out.SelectedTool == nil || strings.TrimSpace(*out.SelectedTool) == "" {
		return nil, NewError(ErrCodeClassifyParse, "classifier output missing selected_tool", false)
	}
	if out.Confidence == nil {
		return nil, NewError(ErrCodeClassifyParse, "classifier output missing confidence_score", false)
	}
	if *out.Confidence < 0 || *out.Confidence > 10 {
		return nil, NewError(ErrCodeClassifyParse,
			fmt.Sprintf("confidence_score %v outside [0,10]", *out.Confidence), false)
	}

	return &datatypes.Classification{
		ToolName:       strings.TrimSpace(*out.SelectedTool),
		Confidence:     *out.Confidence,
		Reasoning:      out.Reasoning,
		DirectResponse: out.DirectResponse,
	}, nil
}

// stripMarkdownFences removes a surrounding ```json ... ``` block, which
// some models emit despite the JSON-only instruction.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
