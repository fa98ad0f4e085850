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
	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
)

// DefaultConfidenceThreshold is the minimum confidence for tool execution.
const DefaultConfidenceThreshold = 7.0

// Decision is the guard-rail routing outcome.
type Decision string

const (
	// DecisionExecuteTool routes to the tool executor.
	DecisionExecuteTool Decision = "execute_tool"

	// DecisionUseFallback routes to the fallback composer.
	DecisionUseFallback Decision = "use_fallback"
)

// Route decides between tool execution and fallback for a classification.
//
// # Description
//
// Pure and total: every classification maps to exactly one decision and
// the same inputs always produce the same output. Checks run in a fixed
// order so log lines and tests agree on which rule fired:
//
//  1. nil classification     → fallback
//  2. CONVERSATIONAL         → fallback
//  3. NO_TOOL                → fallback
//  4. confidence < threshold → fallback
//  5. otherwise              → execute
//
// # Inputs
//
//   - classification: The classifier's output. May be nil.
//   - threshold: Minimum confidence for execution. The comparison is
//     strict: confidence equal to the threshold executes.
//
// # Outputs
//
//   - Decision: DecisionExecuteTool or DecisionUseFallback.
func Route(classification *datatypes.Classification, threshold float64) Decision {
	if classification == nil {
		return DecisionUseFallback
	}
	if classification.ToolName == datatypes.SentinelConversational {
		return DecisionUseFallback
	}
	if classification.ToolName == datatypes.SentinelNoTool {
		return DecisionUseFallback
	}
	if classification.Confidence < threshold {
		return DecisionUseFallback
	}
	return DecisionExecuteTool
}
