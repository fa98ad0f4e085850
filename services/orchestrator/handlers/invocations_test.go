// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
	"github.com/AleutianAI/switchboard/services/orchestrator/workflow"
)

// fixedClassifier returns a canned classification for every query.
type fixedClassifier struct {
	classification *datatypes.Classification
	err            error
}

func (f *fixedClassifier) Classify(_ context.Context, _ *datatypes.WorkflowState) (*datatypes.Classification, error) {
	return f.classification, f.err
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewFromDefinitions(
		registry.ToolDefinition{
			Name:         "ClaimsAgent",
			Description:  "Handles claim status inquiries.",
			Endpoint:     "http://claims-agent:9000/invoke",
			Capabilities: []string{"claim status"},
		},
	)
	require.NoError(t, err)
	return reg
}

func newTestRouter(t *testing.T, classifier workflow.Classifier) (*gin.Engine, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := testRegistry(t)
	executor := workflow.NewToolExecutor(workflow.NewStubDispatcher(), nil)
	pipeline := workflow.NewPipeline(classifier, executor, workflow.DefaultConfidenceThreshold, nil)

	router := gin.New()
	router.POST("/invocations", HandleInvocation(pipeline, reg))
	router.GET("/ping", HandlePing())
	router.GET("/health", HandleHealth(reg))
	return router, reg
}

func postInvocation(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleInvocation_ToolQuery(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{
		classification: &datatypes.Classification{
			ToolName:   "ClaimsAgent",
			Confidence: 9.0,
			Reasoning:  "Claim status inquiry.",
		},
	})

	w := postInvocation(t, router, `{"userPrompt": "where is my claim?", "sessionId": "s-1"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.InvocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Contains(t, resp.ResponseText, "CLM-2024-12345")
	require.NotNil(t, resp.SelectedTool)
	assert.Equal(t, "ClaimsAgent", resp.SelectedTool.ToolName)
	assert.Equal(t, 9.0, resp.Confidence)
}

func TestHandleInvocation_ConversationalQuery(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{
		classification: &datatypes.Classification{
			ToolName:       datatypes.SentinelConversational,
			Confidence:     10.0,
			DirectResponse: "Hello! How can I help you with your insurance needs today?",
		},
	})

	w := postInvocation(t, router, `{"userPrompt": "hi there"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.InvocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "Hello! How can I help you with your insurance needs today?", resp.ResponseText)
	assert.NotEmpty(t, resp.SessionID, "missing sessionId must be backfilled")
}

func TestHandleInvocation_ClassifierFailure(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{
		err: workflow.NewError(workflow.ErrCodeClassifyUpstream, "backend down", true),
	})

	w := postInvocation(t, router, `{"userPrompt": "where is my claim?"}`)

	require.Equal(t, http.StatusOK, w.Code, "classifier failure is a soft failure, not an HTTP error")

	var resp datatypes.InvocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.ResponseText)
	assert.Nil(t, resp.SelectedTool)
}

func TestHandleInvocation_MissingPrompt(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{})

	w := postInvocation(t, router, `{"sessionId": "s-1"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestHandleInvocation_InvalidJSON(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{})

	w := postInvocation(t, router, `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePing(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestHandleHealth(t *testing.T) {
	router, _ := newTestRouter(t, &fixedClassifier{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["tools"])
}
