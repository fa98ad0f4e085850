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
	"testing"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
)

func TestFallbackComposer_Priorities(t *testing.T) {
	tests := []struct {
		name           string
		classification *datatypes.Classification
		want           string
	}{
		{
			name:           "nil classification gets service unavailable",
			classification: nil,
			want:           FallbackServiceUnavailable,
		},
		{
			name: "conversational direct response verbatim",
			classification: &datatypes.Classification{
				ToolName:       datatypes.SentinelConversational,
				Confidence:     10.0,
				DirectResponse: "Hello! How can I help you today?",
			},
			want: "Hello! How can I help you today?",
		},
		{
			name: "conversational without direct response degrades to generic",
			classification: &datatypes.Classification{
				ToolName:   datatypes.SentinelConversational,
				Confidence: 10.0,
			},
			want: FallbackServiceUnavailable,
		},
		{
			name: "no tool gets the no-match message",
			classification: &datatypes.Classification{
				ToolName:   datatypes.SentinelNoTool,
				Confidence: 2.0,
			},
			want: FallbackNoToolFound,
		},
		{
			name: "low confidence named tool gets the clarify message",
			classification: &datatypes.Classification{
				ToolName:   "ClaimsAgent",
				Confidence: 4.5,
			},
			want: FallbackLowConfidence,
		},
		{
			name: "zero confidence gets service unavailable, not clarify",
			classification: &datatypes.Classification{
				ToolName:   "ClaimsAgent",
				Confidence: 0,
			},
			want: FallbackServiceUnavailable,
		},
	}

	composer := NewFallbackComposer(DefaultConfidenceThreshold)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := datatypes.NewWorkflowState("query", "sess", nil, nil)
			state.Classification = tt.classification
			composer.Compose(state)
			if state.FinalAnswer != tt.want {
				t.Errorf("FinalAnswer = %q, want %q", state.FinalAnswer, tt.want)
			}
		})
	}
}

func TestFallbackComposer_NeverEmpty(t *testing.T) {
	composer := NewFallbackComposer(0) // defaulted threshold
	classifications := []*datatypes.Classification{
		nil,
		{ToolName: datatypes.SentinelNoTool},
		{ToolName: datatypes.SentinelConversational},
		{ToolName: "Anything", Confidence: 3},
		{ToolName: "Anything", Confidence: 9},
	}
	for _, c := range classifications {
		state := datatypes.NewWorkflowState("q", "s", nil, nil)
		state.Classification = c
		composer.Compose(state)
		if state.FinalAnswer == "" {
			t.Errorf("Compose left an empty FinalAnswer for %+v", c)
		}
	}
}
