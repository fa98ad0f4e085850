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
	"log/slog"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
)

// Canned fallback answers. FallbackNoToolFound and friends are exported
// so handler and pipeline tests can assert on exact texts.
const (
	// FallbackNoToolFound answers queries no registered tool can serve.
	FallbackNoToolFound = "I'm sorry, I couldn't find the right resource to help with your question. Please try rephrasing your query or contact our support team for assistance."

	// FallbackLowConfidence answers queries the classifier matched only weakly.
	FallbackLowConfidence = "I'm not entirely sure I understand your question. Could you please provide more details or rephrase your request?"

	// FallbackServiceUnavailable answers when classification itself failed.
	FallbackServiceUnavailable = "I'm currently experiencing technical difficulties. Please try again in a few moments or contact support if the issue persists."
)

// FallbackComposer writes the fallback answer into the workflow state.
//
// # Description
//
// Terminal stage for every request the router did not send to a tool.
// Selection is by strict priority:
//
//  1. CONVERSATIONAL with a direct response → the direct response verbatim
//  2. NO_TOOL                               → FallbackNoToolFound
//  3. confidence in (0, threshold)          → FallbackLowConfidence
//  4. anything else (nil classification,
//     zero confidence, no direct response)  → FallbackServiceUnavailable
//
// Compose never fails and performs no external calls.
//
// # Thread Safety
//
// Stateless apart from configuration; safe for concurrent use.
type FallbackComposer struct {
	threshold float64
	logger    *slog.Logger
}

// NewFallbackComposer creates a composer with the given confidence
// threshold. Values <= 0 use DefaultConfidenceThreshold.
func NewFallbackComposer(threshold float64) *FallbackComposer {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &FallbackComposer{
		threshold: threshold,
		logger:    slog.Default().With(slog.String("component", "fallback_composer")),
	}
}

// Compose sets state.FinalAnswer according to the fallback priority.
func (f *FallbackComposer) Compose(state *datatypes.WorkflowState) {
	classification := state.Classification

	if classification == nil {
		f.logger.Info("fallback: no classification in state",
			slog.String("session_id", state.SessionID))
		state.FinalAnswer = FallbackServiceUnavailable
		return
	}

	switch {
	case classification.ToolName == datatypes.SentinelConversational && classification.DirectResponse != "":
		f.logger.Info("fallback: conversational response",
			slog.String("session_id", state.SessionID))
		state.FinalAnswer = classification.DirectResponse

	case classification.ToolName == datatypes.SentinelNoTool:
		f.logger.Info("fallback: no tool match",
			slog.String("session_id", state.SessionID),
			slog.Float64("confidence", classification.Confidence))
		state.FinalAnswer = FallbackNoToolFound

	case classification.Confidence > 0 && classification.Confidence < f.threshold:
		f.logger.Info("fallback: low confidence",
			slog.String("session_id", state.SessionID),
			slog.String("tool", classification.ToolName),
			slog.Float64("confidence", classification.Confidence))
		state.FinalAnswer = FallbackLowConfidence

	default:
		f.logger.Info("fallback: generic",
			slog.String("session_id", state.SessionID),
			slog.String("tool", classification.ToolName),
			slog.Float64("confidence", classification.Confidence))
		state.FinalAnswer = FallbackServiceUnavailable
	}
}
