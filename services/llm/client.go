// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides clients for external language-model backends.
//
// # Description
//
// The package exposes a small LLMClient interface plus REST implementations
// for Anthropic and OpenAI. The clients own authentication (API keys from
// the environment), connection pooling, and client-side timeouts; callers
// bound individual requests with context deadlines.
//
// # Thread Safety
//
// All clients are safe for concurrent use.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
)

// GenerationParams tunes a single generation request. Nil pointer fields
// fall back to backend defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// LLMClient is the standard interface for any LLM backend.
type LLMClient interface {
	// Generate sends a single-turn prompt and returns the model's text.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat sends a conversation (system/user/assistant messages) and
	// returns the model's text response.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// Model returns the configured model identifier, for logging.
	Model() string
}

// NewClient constructs the client for the named backend.
//
// Description:
//
//	Supported backends: "anthropic" (alias "claude") and "openai".
//	Credentials and model overrides come from environment variables
//	(ANTHROPIC_API_KEY/CLAUDE_MODEL, OPENAI_API_KEY/OPENAI_MODEL).
//
// Inputs:
//   - backend: Backend name, case-insensitive.
//
// Outputs:
//   - LLMClient: The configured client.
//   - error: Non-nil for unknown backends or missing credentials.
func NewClient(backend string) (LLMClient, error) {
	switch strings.ToLower(backend) {
	case "anthropic", "claude":
		return NewAnthropicClient()
	case "openai":
		return NewOpenAIClient()
	default:
		return nil, fmt.Errorf("llm: unknown backend %q (want anthropic or openai)", backend)
	}
}
