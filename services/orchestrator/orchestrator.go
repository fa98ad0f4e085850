// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator wires the intent-routing service together.
//
// # Description
//
// This package contains the Service type that coordinates all components:
// the tool registry, the LLM-backed intent classifier, the workflow
// pipeline, HTTP routing, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12210, LLMBackend: "anthropic"}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run(context.Background()))
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/switchboard/services/llm"
	"github.com/AleutianAI/switchboard/services/orchestrator/observability"
	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
	"github.com/AleutianAI/switchboard/services/orchestrator/routes"
	"github.com/AleutianAI/switchboard/services/orchestrator/workflow"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the orchestrator service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until the context is
	// cancelled, a shutdown signal arrives, or the server fails.
	Run(ctx context.Context) error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options.
//
// # Description
//
// Centralizes all configuration for the service. Values can come from
// environment variables (see cmd/orchestrator), config files, or be set
// programmatically for testing. All fields have defaults except
// RegistrySource, which must point at a tool registry document.
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// LLMBackend selects the classifier provider.
	// Valid values: "anthropic" (alias "claude"), "openai".
	// Default: "anthropic"
	LLMBackend string

	// RegistrySource is the tool registry location: a local YAML path or
	// a gs://bucket/object URL. Required; loading failure is fatal.
	RegistrySource string

	// ConfidenceThreshold is the minimum classification confidence for
	// tool execution, on the 0-10 scale. Default: 7.0
	ConfidenceThreshold float64

	// ClassifyTimeout bounds a single classification call.
	// Default: 30s
	ClassifyTimeout time.Duration

	// ToolTimeout bounds a single downstream tool call. Default: 10s
	ToolTimeout time.Duration

	// UseStubTools serves canned tool answers instead of calling the
	// registered endpoints. For local runs and tests. Default: false
	UseStubTools bool

	// LLMRequestsPerSecond caps outbound classifier calls. Values <= 0
	// disable the limiter. Default: 0 (disabled)
	LLMRequestsPerSecond float64

	// LLMBurst is the limiter burst size. Default: 1
	LLMBurst int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "aleutian-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus /metrics endpoint. The CLI
	// turns this on unless ENABLE_METRICS is set to false.
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// ShutdownGrace bounds graceful drain on shutdown. Default: 10s
	ShutdownGrace time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	registry      *registry.Registry
	llmClient     llm.LLMClient
	pipeline      *workflow.Pipeline
	metrics       *observability.WorkflowMetrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a ready-to-run orchestrator Service.
//
// # Description
//
// Initialization order:
//  1. Apply configuration defaults
//  2. Initialize OpenTelemetry tracing
//  3. Initialize Prometheus metrics
//  4. Load and validate the tool registry (fatal on failure)
//  5. Create the LLM client for the configured backend
//  6. Assemble the workflow pipeline
//  7. Register HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults, except
//     RegistrySource which is required.
//
// # Outputs
//
//   - Service: Ready-to-run service.
//   - error: Non-nil if any component fails to initialize. A registry
//     schema violation surfaces here as a *registry.LoadError.
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.config.EnableMetrics {
		if observability.DefaultMetrics == nil {
			observability.InitMetrics()
		}
		s.metrics = observability.DefaultMetrics
		slog.Info("Initialized Prometheus metrics for the workflow")
	}

	s.registry, err = registry.Load(s.config.RegistrySource)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load tool registry: %w", err)
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if err := s.initPipeline(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to assemble workflow: %w", err)
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown.
//
// # Description
//
// Listens on the configured port. SIGINT/SIGTERM or cancellation of ctx
// triggers a graceful drain bounded by ShutdownGrace.
//
// # Outputs
//
//   - error: Non-nil if the server fails to start or dies unexpectedly.
//     A clean signal-triggered shutdown returns nil.
func (s *service) Run(ctx context.Context) error {
	defer s.cleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting orchestrator server",
			"port", s.config.Port,
			"tools", s.registry.Len(),
			"backend", s.config.LLMBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down orchestrator server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "anthropic"
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = workflow.DefaultConfidenceThreshold
	}
	if cfg.ClassifyTimeout == 0 {
		cfg.ClassifyTimeout = workflow.DefaultClassifyTimeout
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = workflow.DefaultToolTimeout
	}
	if cfg.LLMBurst == 0 {
		cfg.LLMBurst = 1
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "aleutian-otel-collector:4317"
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Limitations
//
//   - Uses an insecure gRPC connection (appropriate for internal
//     networks). The connection is lazy, so an unreachable collector
//     does not block startup.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("orchestrator-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient creates the classifier backend client, wrapped with the
// outbound rate limiter when one is configured.
func (s *service) initLLMClient() error {
	client, err := llm.NewClient(s.config.LLMBackend)
	if err != nil {
		return err
	}
	slog.Info("Using LLM backend", "backend", s.config.LLMBackend, "model", client.Model())

	if s.config.LLMRequestsPerSecond > 0 {
		client = llm.NewRateLimitedClient(client, s.config.LLMRequestsPerSecond, s.config.LLMBurst)
		slog.Info("LLM rate limiter enabled",
			"requests_per_second", s.config.LLMRequestsPerSecond,
			"burst", s.config.LLMBurst,
		)
	}

	s.llmClient = client
	return nil
}

// initPipeline assembles the classifier, executor, and pipeline driver.
func (s *service) initPipeline() error {
	classifier, err := workflow.NewIntentClassifier(s.llmClient, s.config.ClassifyTimeout, s.metrics)
	if err != nil {
		return err
	}

	var dispatcher workflow.Dispatcher
	if s.config.UseStubTools {
		dispatcher = workflow.NewStubDispatcher()
		slog.Info("Tool dispatch is stubbed; downstream agents will not be called")
	} else {
		dispatcher = workflow.NewHTTPDispatcher(s.config.ToolTimeout)
	}

	executor := workflow.NewToolExecutor(dispatcher, s.metrics)
	s.pipeline = workflow.NewPipeline(classifier, executor, s.config.ConfidenceThreshold, s.metrics)
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.New()
	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.Use(otelgin.Middleware("orchestrator-service"))

	routes.SetupRoutes(s.router, s.pipeline, s.registry, s.config.EnableMetrics)
}

// cleanup releases resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
