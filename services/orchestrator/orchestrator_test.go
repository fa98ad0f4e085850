// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistryYAML = `tools:
  - name: IBTAgent
    description: Answers questions about insurance benefit terms.
    endpoint: http://ibt-agent:9000/invoke
    capabilities:
      - benefit lookups
  - name: ClaimsAgent
    description: Handles claim status inquiries.
    endpoint: http://claims-agent:9000/invoke
    capabilities:
      - claim status
`

func writeTestRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistryYAML), 0o600))
	return path
}

func newTestService(t *testing.T) Service {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	svc, err := New(Config{
		RegistrySource: writeTestRegistry(t),
		UseStubTools:   true,
		EnableMetrics:  false,
		GinMode:        "test",
	})
	require.NoError(t, err)
	return svc
}

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	assert.Equal(t, 12210, cfg.Port)
	assert.Equal(t, "anthropic", cfg.LLMBackend)
	assert.Equal(t, 7.0, cfg.ConfidenceThreshold)
	assert.Equal(t, 30*time.Second, cfg.ClassifyTimeout)
	assert.Equal(t, 10*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 1, cfg.LLMBurst)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
}

func TestApplyConfigDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := applyConfigDefaults(Config{
		Port:                9999,
		LLMBackend:          "openai",
		ConfidenceThreshold: 5.0,
	})

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "openai", cfg.LLMBackend)
	assert.Equal(t, 5.0, cfg.ConfidenceThreshold)
}

func TestNew_FailsOnMissingRegistry(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	_, err := New(Config{
		RegistrySource: filepath.Join(t.TempDir(), "does-not-exist.yaml"),
		GinMode:        "test",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool registry")
}

func TestNew_FailsOnInvalidBackend(t *testing.T) {
	_, err := New(Config{
		RegistrySource: writeTestRegistry(t),
		LLMBackend:     "carrier-pigeon",
		GinMode:        "test",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM client")
}

func TestService_Ping(t *testing.T) {
	svc := newTestService(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestService_Health(t *testing.T) {
	svc := newTestService(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), `"tools":2`)
}

func TestService_InvocationRejectsMalformedBody(t *testing.T) {
	svc := newTestService(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invocations",
		strings.NewReader(`{"sessionId": "abc"}`))
	req.Header.Set("Content-Type", "application/json")
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
