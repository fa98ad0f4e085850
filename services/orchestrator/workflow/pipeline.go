// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow implements the invocation pipeline: intent
// classification, guard-rail routing, tool execution, and fallback
// composition over a single mutable WorkflowState.
package workflow

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
	"github.com/AleutianAI/switchboard/services/orchestrator/observability"
)

// Stage names the pipeline's internal states, in execution order.
type Stage string

const (
	StageStart       Stage = "START"
	StageClassified  Stage = "CLASSIFIED"
	StageExecuting   Stage = "EXECUTING"
	StageFallingBack Stage = "FALLING_BACK"
	StageDone        Stage = "DONE"
)

// Classifier produces a Classification for the query in the state.
// IntentClassifier is the production implementation; tests substitute
// deterministic fakes.
type Classifier interface {
	Classify(ctx context.Context, state *datatypes.WorkflowState) (*datatypes.Classification, error)
}

// Result is what the pipeline hands back to the HTTP layer.
type Result struct {
	// FinalAnswer is the text for the user. Never empty.
	FinalAnswer string

	// Classification is the classifier's output, nil when classification
	// failed.
	Classification *datatypes.Classification

	// Decision is the guard-rail routing outcome.
	Decision Decision

	// SoftFailure is true when the answer is a degraded one: the
	// classifier failed, the tool call failed, or an invariant was
	// violated.
	SoftFailure bool
}

// Pipeline drives one invocation through its stages.
//
// # Description
//
// START → classify → CLASSIFIED → route → EXECUTING or FALLING_BACK →
// DONE. Classification failure forces the fallback path with a nil
// classification, which composes the service-unavailable answer. The
// pipeline always terminates with a non-empty FinalAnswer; no error from
// a stage escapes to the caller.
//
// # Thread Safety
//
// Safe for concurrent use; each Run owns its state exclusively.
type Pipeline struct {
	classifier Classifier
	executor   *ToolExecutor
	fallback   *FallbackComposer
	threshold  float64
	logger     *slog.Logger
	metrics    *observability.WorkflowMetrics
}

// NewPipeline assembles the pipeline from its stages.
//
// # Inputs
//
//   - classifier: The intent classifier. Must not be nil.
//   - executor: The tool executor. Must not be nil.
//   - threshold: Guard-rail confidence threshold. Values <= 0 use
//     DefaultConfidenceThreshold.
//   - metrics: Workflow metrics. May be nil.
func NewPipeline(classifier Classifier, executor *ToolExecutor, threshold float64, metrics *observability.WorkflowMetrics) *Pipeline {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Pipeline{
		classifier: classifier,
		executor:   executor,
		fallback:   NewFallbackComposer(threshold),
		threshold:  threshold,
		logger:     slog.Default().With(slog.String("component", "pipeline")),
		metrics:    metrics,
	}
}

// Threshold returns the configured confidence threshold.
func (p *Pipeline) Threshold() float64 { return p.threshold }

// Run drives the state to DONE and returns the result.
//
// # Inputs
//
//   - ctx: Request context; cancellation aborts in-flight LLM and tool
//     calls, after which the fallback path still produces an answer.
//   - state: Fresh per-request state. Mutated in place.
//
// # Outputs
//
//   - *Result: Always non-nil with a non-empty FinalAnswer.
func (p *Pipeline) Run(ctx context.Context, state *datatypes.WorkflowState) *Result {
	ctx, span := intentTracer.Start(ctx, "workflow.Run")
	defer span.End()

	stage := StageStart
	softFailure := false

	classification, err := p.classifier.Classify(ctx, state)
	if err != nil {
		// Forced fallback: leave Classification nil so the composer
		// picks the service-unavailable answer.
		p.logger.Warn("classification failed, forcing fallback",
			slog.String("session_id", state.SessionID),
			slog.String("error", err.Error()),
		)
		softFailure = true
	} else {
		state.Classification = classification
	}
	stage = StageClassified

	decision := Route(state.Classification, p.threshold)
	span.SetAttributes(attribute.String("decision", string(decision)))

	switch decision {
	case DecisionExecuteTool:
		stage = StageExecuting
		if execErr := p.executor.Execute(ctx, state); execErr != nil {
			// Precondition violation. Route() makes this unreachable,
			// so it is logged loudly and degraded to a generic answer.
			p.logger.Error("tool execution aborted",
				slog.String("session_id", state.SessionID),
				slog.String("error", execErr.Error()),
			)
			state.FinalAnswer = FallbackServiceUnavailable
			softFailure = true
		} else if state.ToolResult != nil && !state.ToolResult.Succeeded {
			softFailure = true
		}

	case DecisionUseFallback:
		stage = StageFallingBack
		p.fallback.Compose(state)
	}

	// Response composition: DONE always carries a non-empty answer.
	if state.FinalAnswer == "" {
		state.FinalAnswer = FallbackServiceUnavailable
		softFailure = true
	}
	stage = StageDone

	p.metrics.RecordInvocation(string(decision), !softFailure)
	p.logger.Info("workflow complete",
		slog.String("session_id", state.SessionID),
		slog.String("stage", string(stage)),
		slog.String("decision", string(decision)),
		slog.Bool("soft_failure", softFailure),
	)

	return &Result{
		FinalAnswer:    state.FinalAnswer,
		Classification: state.Classification,
		Decision:       decision,
		SoftFailure:    softFailure,
	}
}
