// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/switchboard/services/orchestrator/handlers"
	"github.com/AleutianAI/switchboard/services/orchestrator/registry"
	"github.com/AleutianAI/switchboard/services/orchestrator/workflow"
)

// SetupRoutes registers the orchestrator API on the router.
//
// # Description
//
// The invocation endpoint lives at the root (the gateway contract), the
// probes at /ping and /health, and Prometheus metrics at /metrics when
// enabled.
func SetupRoutes(router *gin.Engine, pipeline *workflow.Pipeline, reg *registry.Registry, enableMetrics bool) {
	router.POST("/invocations", handlers.HandleInvocation(pipeline, reg))
	router.GET("/ping", handlers.HandlePing())
	router.GET("/health", handlers.HandleHealth(reg))

	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}
