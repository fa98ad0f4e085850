// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry loads and serves the static tool registry.
//
// # Description
//
// The registry maps tool names to their definitions (description, endpoint,
// capabilities, parameters). It is loaded once at process start from a YAML
// document — a local file or a gs:// object — and held as read-only state
// for the process lifetime. Reload requires a restart.
//
// # Thread Safety
//
// Registry is immutable after Load and safe for unsynchronized concurrent
// reads.
package registry

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Error Type
// =============================================================================

// LoadError reports a failure to load or validate the tool registry.
//
// Description:
//
//	Returned by Load and its source-specific variants when the source is
//	missing, malformed, or any entry fails schema validation. A LoadError
//	is startup-fatal: the service must not serve traffic with an unloaded
//	registry.
type LoadError struct {
	// Source is the file path or object URL that failed to load.
	Source string

	// Message is a human-readable description of the failure.
	Message string

	// Err is the underlying cause, when any.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("registry %s: %s", e.Source, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *LoadError) Unwrap() error { return e.Err }

// =============================================================================
// Tool Definition
// =============================================================================

// ToolExample pairs a sample prompt with the reasoning for routing it to
// this tool. Examples are rendered into the classifier prompt verbatim.
type ToolExample struct {
	Prompt    string `yaml:"prompt" validate:"required"`
	Reasoning string `yaml:"reasoning"`
}

// ToolParameters lists the parameter names a tool accepts.
type ToolParameters struct {
	// Required parameter names. The key must be present in the document,
	// though the list itself may be empty.
	Required []string `yaml:"required"`

	// Optional parameter names.
	Optional []string `yaml:"optional"`
}

// ToolDefinition describes one downstream tool the orchestrator can route
// a query to.
//
// Description:
//
//	Loaded from configuration at startup and immutable for the process
//	lifetime. Never mutated by request handling.
type ToolDefinition struct {
	// Name is the tool's unique identifier (e.g., "IBTAgent").
	Name string `yaml:"name" validate:"required"`

	// Description explains what the tool does, for the classifier prompt.
	Description string `yaml:"description" validate:"required"`

	// Endpoint is the tool backend's invocation URL.
	Endpoint string `yaml:"endpoint" validate:"required,url"`

	// Capabilities tags what the tool can answer (e.g., "benefits").
	Capabilities []string `yaml:"capabilities" validate:"required,min=1,dive,required"`

	// Parameters lists required and optional parameter names.
	Parameters ToolParameters `yaml:"parameters"`

	// Examples are optional sample prompts with routing rationale.
	Examples []ToolExample `yaml:"examples" validate:"omitempty,dive"`
}

// registryDocument is the top-level YAML shape.
type registryDocument struct {
	Tools []ToolDefinition `yaml:"tools"`
}

// =============================================================================
// Registry
// =============================================================================

// Registry is the immutable name-to-definition mapping.
type Registry struct {
	byName map[string]ToolDefinition
	order  []string
}

// Get returns the definition for a tool name. The lookup never fails; the
// second return reports whether the name is registered.
func (r *Registry) Get(name string) (ToolDefinition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Names returns tool names in document order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tools returns the definitions in document order. The returned slice is a
// copy; the registry itself stays immutable.
func (r *Registry) Tools() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// NewFromDefinitions builds a registry directly from definitions, applying
// the same validation as the YAML loader. Used by tests and embedded
// defaults.
func NewFromDefinitions(defs ...ToolDefinition) (*Registry, error) {
	reg := &Registry{byName: make(map[string]ToolDefinition, len(defs))}
	for i, def := range defs {
		if err := validate.Struct(def); err != nil {
			return nil, &LoadError{
				Source:  "inline",
				Message: fmt.Sprintf("tool at index %d failed validation", i),
				Err:     err,
			}
		}
		if err := checkEndpoint(def.Endpoint); err != nil {
			return nil, &LoadError{
				Source:  "inline",
				Message: fmt.Sprintf("tool %q has invalid endpoint", def.Name),
				Err:     err,
			}
		}
		if _, dup := reg.byName[def.Name]; dup {
			return nil, &LoadError{Source: "inline", Message: fmt.Sprintf("duplicate tool name %q", def.Name)}
		}
		reg.byName[def.Name] = def
		reg.order = append(reg.order, def.Name)
	}
	return reg, nil
}

// =============================================================================
// Loading
// =============================================================================

var validate = validator.New()

// Load reads the registry from the given source.
//
// Description:
//
//	Dispatches on the source scheme: "gs://bucket/object" loads from Google
//	Cloud Storage, anything else is treated as a local file path. Fails
//	fast with a *LoadError on any schema violation.
//
// Inputs:
//   - source: File path or gs:// object URL.
//
// Outputs:
//   - *Registry: The loaded, immutable registry.
//   - error: *LoadError on any failure.
func Load(source string) (*Registry, error) {
	if strings.HasPrefix(source, "gs://") {
		return LoadFromGCS(source)
	}
	return LoadFromFile(source)
}

// LoadFromFile reads the registry from a local YAML file.
//
// Inputs:
//   - path: Path to the YAML document.
//
// Outputs:
//   - *Registry: The loaded registry.
//   - error: *LoadError if the file is missing, unreadable, malformed, or
//     any entry fails validation.
func LoadFromFile(path string) (*Registry, error) {
	slog.Info("Loading tool registry", "source", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Message: "reading file", Err: err}
	}
	return parse(path, raw)
}

// parse decodes and validates a registry document.
func parse(source string, raw []byte) (*Registry, error) {
	var doc registryDocument
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Source: source, Message: "parsing YAML", Err: err}
	}

	if len(doc.Tools) == 0 {
		return nil, &LoadError{Source: source, Message: "document has no 'tools' entries"}
	}

	reg := &Registry{byName: make(map[string]ToolDefinition, len(doc.Tools))}
	for i, def := range doc.Tools {
		if err := validate.Struct(def); err != nil {
			return nil, &LoadError{
				Source:  source,
				Message: fmt.Sprintf("tool at index %d failed validation", i),
				Err:     err,
			}
		}
		if err := checkEndpoint(def.Endpoint); err != nil {
			return nil, &LoadError{
				Source:  source,
				Message: fmt.Sprintf("tool %q has invalid endpoint", def.Name),
				Err:     err,
			}
		}
		if _, dup := reg.byName[def.Name]; dup {
			return nil, &LoadError{
				Source:  source,
				Message: fmt.Sprintf("duplicate tool name %q", def.Name),
			}
		}
		reg.byName[def.Name] = def
		reg.order = append(reg.order, def.Name)
	}

	slog.Info("Tool registry loaded", "tools", reg.Len(), "names", reg.order)
	return reg, nil
}

// checkEndpoint verifies the endpoint is an absolute http(s) URL. The
// validator's url tag accepts other schemes, so this narrows it.
func checkEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", endpoint)
	}
	return nil
}
