// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the Switchboard intent-routing service.
//
// Switchboard accepts free-text queries over HTTP, classifies each one with
// an LLM against a registry of downstream tools, and either invokes the
// selected tool or answers with a conversational fallback.
//
// Usage:
//
//	orchestrator serve
//	orchestrator serve --port 12210 --registry configs/tools.yaml
//	orchestrator validate --registry configs/tools.yaml
//
// Configuration comes from flags first, then environment variables:
//
//	ORCHESTRATOR_PORT           HTTP port (default 12210)
//	LLM_BACKEND                 "anthropic" or "openai" (default anthropic)
//	TOOL_REGISTRY_PATH          registry location, path or gs:// URL
//	CONFIDENCE_THRESHOLD        minimum routing confidence, 0-10 (default 7.0)
//	CLASSIFY_TIMEOUT_SECONDS    classifier call budget (default 30)
//	TOOL_TIMEOUT_SECONDS        downstream tool call budget (default 10)
//	USE_STUB_TOOLS              "true" serves canned tool answers
//	LLM_REQUESTS_PER_SECOND     outbound classifier rate limit (0 disables)
//	OTEL_EXPORTER_OTLP_ENDPOINT OTLP collector (default aleutian-otel-collector:4317)
//	ENABLE_METRICS              "false" disables /metrics (default true)
//	ANTHROPIC_API_KEY           API key for the anthropic backend
//	OPENAI_API_KEY              API key for the openai backend
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/switchboard/services/orchestrator"
	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
)

// Flag values. Empty or zero means "fall back to the environment".
var (
	flagPort      int
	flagRegistry  string
	flagBackend   string
	flagThreshold float64
	flagStubTools bool
)

func main() {
	initLogging()

	rootCmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Switchboard intent-routing service",
		Long: "Switchboard routes free-text queries to downstream tools using an\n" +
			"LLM intent classifier gated by a confidence threshold.",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP port (default $ORCHESTRATOR_PORT or 12210)")
	serveCmd.Flags().StringVar(&flagRegistry, "registry", "", "tool registry path or gs:// URL (default $TOOL_REGISTRY_PATH)")
	serveCmd.Flags().StringVar(&flagBackend, "backend", "", "LLM backend: anthropic or openai (default $LLM_BACKEND)")
	serveCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "confidence threshold, 0-10 (default $CONFIDENCE_THRESHOLD or 7.0)")
	serveCmd.Flags().BoolVar(&flagStubTools, "stub-tools", false, "serve canned tool answers instead of calling backends")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the tool registry, then exit",
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&flagRegistry, "registry", "", "tool registry path or gs:// URL (default $TOOL_REGISTRY_PATH)")

	rootCmd.AddCommand(serveCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging selects the slog handler for the process: human-readable text
// on a terminal, JSON when output is piped or captured by a log collector.
func initLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := configFromEnv()

	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagRegistry != "" {
		cfg.RegistrySource = flagRegistry
	}
	if flagBackend != "" {
		cfg.LLMBackend = flagBackend
	}
	if flagThreshold != 0 {
		cfg.ConfidenceThreshold = flagThreshold
	}
	if flagStubTools {
		cfg.UseStubTools = true
	}

	if cfg.RegistrySource == "" {
		return fmt.Errorf("no tool registry configured: set --registry or TOOL_REGISTRY_PATH")
	}

	svc, err := orchestrator.New(cfg)
	if err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}
	return svc.Run(context.Background())
}

func runValidate(_ *cobra.Command, _ []string) error {
	source := flagRegistry
	if source == "" {
		source = os.Getenv("TOOL_REGISTRY_PATH")
	}
	if source == "" {
		return fmt.Errorf("no tool registry configured: set --registry or TOOL_REGISTRY_PATH")
	}

	reg, err := registry.Load(source)
	if err != nil {
		return err
	}

	fmt.Printf("Registry %s is valid: %d tool(s)\n", source, reg.Len())
	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		fmt.Printf("  %-16s %s\n", name, def.Endpoint)
	}
	return nil
}

// =============================================================================
// Environment Configuration
// =============================================================================

// configFromEnv builds the service configuration from environment variables.
// Unset variables leave the zero value, which the service fills with its own
// defaults.
func configFromEnv() orchestrator.Config {
	return orchestrator.Config{
		Port:                 getEnvInt("ORCHESTRATOR_PORT", 0),
		LLMBackend:           os.Getenv("LLM_BACKEND"),
		RegistrySource:       os.Getenv("TOOL_REGISTRY_PATH"),
		ConfidenceThreshold:  getEnvFloat("CONFIDENCE_THRESHOLD", 0),
		ClassifyTimeout:      getEnvSeconds("CLASSIFY_TIMEOUT_SECONDS", 0),
		ToolTimeout:          getEnvSeconds("TOOL_TIMEOUT_SECONDS", 0),
		UseStubTools:         getEnvBool("USE_STUB_TOOLS", false),
		LLMRequestsPerSecond: getEnvFloat("LLM_REQUESTS_PER_SECOND", 0),
		OTelEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableMetrics:        getEnvBool("ENABLE_METRICS", true),
		GinMode:              os.Getenv("GIN_MODE"),
	}
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring non-integer environment value", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Ignoring non-numeric environment value", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	secs := getEnvInt(key, 0)
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func getEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring non-boolean environment value", "key", key, "value", raw)
		return fallback
	}
	return v
}
