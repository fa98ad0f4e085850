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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
)

// =============================================================================
// Mock Classifier
// =============================================================================

type mockClassifier struct {
	classifyFn func(ctx context.Context, state *datatypes.WorkflowState) (*datatypes.Classification, error)
	calls      int
}

func (m *mockClassifier) Classify(ctx context.Context, state *datatypes.WorkflowState) (*datatypes.Classification, error) {
	m.calls++
	return m.classifyFn(ctx, state)
}

func fixedClassifier(c *datatypes.Classification, err error) *mockClassifier {
	return &mockClassifier{classifyFn: func(context.Context, *datatypes.WorkflowState) (*datatypes.Classification, error) {
		return c, err
	}}
}

func newTestPipeline(classifier Classifier) *Pipeline {
	executor := NewToolExecutor(NewStubDispatcher(), nil)
	return NewPipeline(classifier, executor, DefaultConfidenceThreshold, nil)
}

// =============================================================================
// End-to-End Scenarios
// =============================================================================

func TestPipeline_HighConfidenceToolQuery(t *testing.T) {
	classifier := fixedClassifier(&datatypes.Classification{
		ToolName:   "ClaimsAgent",
		Confidence: 9.0,
		Reasoning:  "claim status question",
	}, nil)

	pipeline := newTestPipeline(classifier)
	state := datatypes.NewWorkflowState("what is the status of my claim", "", nil, testRegistry(t))
	result := pipeline.Run(context.Background(), state)

	assert.Equal(t, DecisionExecuteTool, result.Decision)
	assert.False(t, result.SoftFailure)
	require.NotNil(t, state.ToolResult)
	assert.True(t, state.ToolResult.Succeeded)
	assert.Contains(t, result.FinalAnswer, "CLM-2024-12345")
	require.NotNil(t, result.Classification)
	assert.Equal(t, "ClaimsAgent", result.Classification.ToolName)
}

func TestPipeline_ConversationalQuery(t *testing.T) {
	classifier := fixedClassifier(&datatypes.Classification{
		ToolName:       datatypes.SentinelConversational,
		Confidence:     10.0,
		Reasoning:      "greeting",
		DirectResponse: "Hello! I'm here to help you with your insurance benefits and claims.",
	}, nil)

	pipeline := newTestPipeline(classifier)
	state := datatypes.NewWorkflowState("hello", "", nil, testRegistry(t))
	result := pipeline.Run(context.Background(), state)

	assert.Equal(t, DecisionUseFallback, result.Decision)
	assert.False(t, result.SoftFailure)
	assert.Equal(t, "Hello! I'm here to help you with your insurance benefits and claims.", result.FinalAnswer)
	assert.Nil(t, state.ToolResult, "conversational queries must not execute tools")
}

func TestPipeline_OutOfScopeQuery(t *testing.T) {
	classifier := fixedClassifier(&datatypes.Classification{
		ToolName:   datatypes.SentinelNoTool,
		Confidence: 2.0,
		Reasoning:  "cooking is out of scope",
	}, nil)

	pipeline := newTestPipeline(classifier)
	state := datatypes.NewWorkflowState("how do I cook pasta", "", nil, testRegistry(t))
	result := pipeline.Run(context.Background(), state)

	assert.Equal(t, DecisionUseFallback, result.Decision)
	assert.False(t, result.SoftFailure)
	assert.Equal(t, FallbackNoToolFound, result.FinalAnswer)
}

func TestPipeline_LowConfidenceQuery(t *testing.T) {
	classifier := fixedClassifier(&datatypes.Classification{
		ToolName:   "ClaimsAgent",
		Confidence: 5.0,
		Reasoning:  "ambiguous",
	}, nil)

	pipeline := newTestPipeline(classifier)
	state := datatypes.NewWorkflowState("it went through, right?", "", nil, testRegistry(t))
	result := pipeline.Run(context.Background(), state)

	assert.Equal(t, DecisionUseFallback, result.Decision)
	assert.False(t, result.SoftFailure)
	assert.Equal(t, FallbackLowConfidence, result.FinalAnswer)
	assert.Nil(t, state.ToolResult)
}

func TestPipeline_ClassifierFailureForcesFallback(t *testing.T) {
	classifier := fixedClassifier(nil,
		NewError(ErrCodeClassifyUpstream, "API returned status 500", true))

	pipeline := newTestPipeline(classifier)
	state := datatypes.NewWorkflowState("what is my deductible", "", nil, testRegistry(t))
	result := pipeline.Run(context.Background(), state)

	assert.Equal(t, DecisionUseFallback, result.Decision)
	assert.True(t, result.SoftFailure)
	assert.Equal(t, FallbackServiceUnavailable, result.FinalAnswer)
	assert.Nil(t, result.Classification)
}

// =============================================================================
// Invariants
// =============================================================================

func TestPipeline_AlwaysNonEmptyAnswer(t *testing.T) {
	classifications := []*datatypes.Classification{
		{ToolName: "ClaimsAgent", Confidence: 9.0},
		{ToolName: "GhostAgent", Confidence: 9.0}, // unregistered
		{ToolName: datatypes.SentinelNoTool, Confidence: 1.0},
		{ToolName: datatypes.SentinelConversational, Confidence: 10.0}, // no direct response
		{ToolName: "ClaimsAgent", Confidence: 3.0},
	}

	for _, c := range classifications {
		pipeline := newTestPipeline(fixedClassifier(c, nil))
		state := datatypes.NewWorkflowState("query", "", nil, testRegistry(t))
		result := pipeline.Run(context.Background(), state)
		assert.NotEmpty(t, result.FinalAnswer, "classification %+v produced an empty answer", c)
		assert.NotEmpty(t, state.FinalAnswer)
	}
}

func TestPipeline_SoftFailureOnToolError(t *testing.T) {
	classifier := fixedClassifier(&datatypes.Classification{
		ToolName:   "GhostAgent",
		Confidence: 9.5,
	}, nil)

	pipeline := newTestPipeline(classifier)
	state := datatypes.NewWorkflowState("query", "", nil, testRegistry(t))
	result := pipeline.Run(context.Background(), state)

	assert.Equal(t, DecisionExecuteTool, result.Decision)
	assert.True(t, result.SoftFailure)
	assert.Equal(t, FallbackServiceUnavailable, result.FinalAnswer)
}

func TestPipeline_DeterministicWithStubbedClassifier(t *testing.T) {
	classifier := fixedClassifier(&datatypes.Classification{
		ToolName:   "IBTAgent",
		Confidence: 8.0,
	}, nil)
	pipeline := newTestPipeline(classifier)

	var first string
	for i := 0; i < 5; i++ {
		state := datatypes.NewWorkflowState("what does my plan cover", "fixed-session", nil, testRegistry(t))
		result := pipeline.Run(context.Background(), state)
		if i == 0 {
			first = result.FinalAnswer
			continue
		}
		assert.Equal(t, first, result.FinalAnswer, "identical runs must produce identical answers")
	}
}

func TestPipeline_SessionIDGenerated(t *testing.T) {
	state := datatypes.NewWorkflowState("query", "", nil, testRegistry(t))
	assert.NotEmpty(t, state.SessionID, "missing session id must be generated")

	kept := datatypes.NewWorkflowState("query", "caller-chosen", nil, testRegistry(t))
	assert.Equal(t, "caller-chosen", kept.SessionID)
}
