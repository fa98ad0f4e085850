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
	"bytes"
	"strings"
	"text/template"

	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
)

// =============================================================================
// Prompt Builder
// =============================================================================

// PromptBuilder constructs the system prompt for intent classification.
//
// # Description
//
// Renders the available tools (name, description, endpoint, capabilities,
// parameters) into the classification system prompt. Rendering is
// deterministic: tools appear in registry order, so the same registry
// always produces the same prompt.
//
// # Thread Safety
//
// PromptBuilder is safe for concurrent use.
type PromptBuilder struct {
	tmpl *template.Template
}

// promptData is the data for system prompt rendering.
type promptData struct {
	Tools []registry.ToolDefinition
}

// systemPromptTemplate instructs the classifier to return strict JSON.
//
// The policy mirrors the downstream domain: tool routing for insurance
// questions, CONVERSATIONAL for small talk, NO_TOOL for out-of-scope or
// uncertain queries.
const systemPromptTemplate = `You are an intelligent tool selection agent for a healthcare insurance system.

Available tools and their capabilities:
{{- if .Tools}}
{{range .Tools}}
Tool: {{.Name}}
Description: {{.Description}}
Endpoint: {{.Endpoint}}
Capabilities: {{join .Capabilities ", "}}
Parameters (Required): {{join .Parameters.Required ", "}}
Parameters (Optional): {{if .Parameters.Optional}}{{join .Parameters.Optional ", "}}{{else}}None{{end}}
{{- if .Examples}}
Examples:
{{- range .Examples}}
  - "{{.Prompt}}"{{if .Reasoning}} ({{.Reasoning}}){{end}}
{{- end}}
{{- end}}
{{end}}
{{- else}}
No tools available
{{- end}}

Your task is to:
1. Analyze the user's query to understand their intent
2. Classify the query type:
   - TOOL REQUIRED: Route to the appropriate tool listed above
   - CONVERSATIONAL: Simple greeting, thank you, goodbye, small talk
   - OUT OF SCOPE: Query unrelated to insurance/healthcare

CONVERSATIONAL QUERIES:
For greetings (hello, hi, hey), thank you messages, or goodbyes:
- Set selected_tool to "CONVERSATIONAL"
- Set confidence_score to 10.0
- Provide a friendly direct_response

TOOL ROUTING:
- Only route to tools for actual insurance questions
- If you are not confident, select "NO_TOOL"
- If the query is out of scope, select "NO_TOOL"

Respond with ONLY a JSON object. No explanation, no markdown, just JSON:
{"selected_tool": "<tool name, CONVERSATIONAL, or NO_TOOL>", "confidence_score": <0.0-10.0>, "reasoning": "<your decision explanation>", "direct_response": "<only for CONVERSATIONAL>"}`

// NewPromptBuilder creates a new PromptBuilder.
//
// # Outputs
//
//   - *PromptBuilder: Configured builder.
//   - error: Non-nil if template parsing fails.
func NewPromptBuilder() (*PromptBuilder, error) {
	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	tmpl, err := template.New("system").Funcs(funcMap).Parse(systemPromptTemplate)
	if err != nil {
		return nil, err
	}

	return &PromptBuilder{tmpl: tmpl}, nil
}

// BuildSystemPrompt renders the classification system prompt.
//
// # Inputs
//
//   - reg: The tool registry. Nil or empty renders a "No tools available"
//     context so the classifier falls back to NO_TOOL/CONVERSATIONAL.
//
// # Outputs
//
//   - string: The rendered system prompt.
//   - error: Non-nil if template rendering fails.
func (p *PromptBuilder) BuildSystemPrompt(reg *registry.Registry) (string, error) {
	data := promptData{}
	if reg != nil {
		data.Tools = reg.Tools()
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildUserPrompt generates the user message containing the query.
func (p *PromptBuilder) BuildUserPrompt(query string) string {
	return "User query: " + query + "\n\nClassify the query and respond with JSON only."
}
