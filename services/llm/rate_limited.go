// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/switchboard/services/orchestrator/datatypes"
)

// RateLimitedClient wraps an LLMClient with a token-bucket limiter so a
// burst of invocations does not exhaust upstream provider quotas.
//
// Description:
//
//	Every Generate and Chat call blocks on the limiter before reaching
//	the wrapped client. Cancellation of the caller's context aborts the
//	wait with the context's error.
//
// Thread Safety: Safe for concurrent use. rate.Limiter is internally
// synchronized.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps a client with a requests-per-second limit.
//
// Inputs:
//   - inner: The client to wrap. Must not be nil.
//   - requestsPerSecond: Sustained request rate. Values <= 0 disable
//     limiting and calls pass straight through.
//   - burst: Maximum burst size. Values < 1 are clamped to 1.
//
// Outputs:
//   - *RateLimitedClient: The wrapped client.
func NewRateLimitedClient(inner LLMClient, requestsPerSecond float64, burst int) *RateLimitedClient {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// Model implements the LLMClient interface.
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Generate implements the LLMClient interface, waiting on the limiter first.
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Generate(ctx, prompt, params)
}

// Chat implements the LLMClient interface, waiting on the limiter first.
func (c *RateLimitedClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Chat(ctx, messages, params)
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("llm: rate limit wait aborted: %w", err)
	}
	return nil
}
