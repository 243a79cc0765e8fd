// Copyright 2026 Sievework
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/ratelimit"
)

// latencyAlpha is the smoothing factor for the rolling latency average.
const latencyAlpha = 0.3

// Route names the primary and fallback provider for one task type.
type Route struct {
	Primary  string
	Fallback string
}

// Router dispatches completions across providers by task type, with exactly
// one fallback attempt on primary failure. Safe for concurrent use.
type Router struct {
	backends map[string]LLMBackend
	routes   map[TaskType]Route
	costs    CostTable

	limiter     *ratelimit.Limiter
	limitCalls  int
	limitWindow time.Duration

	mu    sync.Mutex
	stats map[string]*ProviderUsageStats

	logger *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router) error

// WithBackend registers a provider backend under its own name.
func WithBackend(backend LLMBackend) RouterOption {
	return func(r *Router) error {
		if backend == nil {
			return ErrBackendRequired
		}
		r.backends[backend.Name()] = backend
		return nil
	}
}

// WithRoute sets the primary and fallback provider for a task type.
// An empty fallback disables the fallback attempt for that task.
func WithRoute(task TaskType, primary, fallback string) RouterOption {
	return func(r *Router) error {
		r.routes[task] = Route{Primary: primary, Fallback: fallback}
		return nil
	}
}

// WithCostTable sets the published rates used for cost accounting.
func WithCostTable(costs CostTable) RouterOption {
	return func(r *Router) error {
		r.costs = costs
		return nil
	}
}

// WithRateLimit routes every provider attempt through the shared limiter,
// capped at maxCalls per window per provider.
func WithRateLimit(limiter *ratelimit.Limiter, maxCalls int, window time.Duration) RouterOption {
	return func(r *Router) error {
		r.limiter = limiter
		r.limitCalls = maxCalls
		r.limitWindow = window
		return nil
	}
}

// WithRouterLogger sets a custom logger. Default is slog.Default().
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRouter creates a Router. At least one backend and one route are
// required, and every route must reference registered backends.
func NewRouter(opts ...RouterOption) (*Router, error) {
	r := &Router{
		backends: make(map[string]LLMBackend),
		routes:   make(map[TaskType]Route),
		costs:    make(CostTable),
		stats:    make(map[string]*ProviderUsageStats),
		logger:   slog.Default().With("component", "llm-router"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if len(r.backends) == 0 {
		return nil, ErrBackendRequired
	}
	for task, route := range r.routes {
		if _, ok := r.backends[route.Primary]; !ok {
			return nil, fmt.Errorf("%w: %q (primary for %s)", ErrUnknownProvider, route.Primary, task)
		}
		if route.Fallback != "" {
			if _, ok := r.backends[route.Fallback]; !ok {
				return nil, fmt.Errorf("%w: %q (fallback for %s)", ErrUnknownProvider, route.Fallback, task)
			}
		}
	}

	return r, nil
}

// Complete runs one task-typed completion. On primary failure, exactly one
// fallback attempt is made against the designated alternate provider before
// an error surfaces; the fallback response carries FallbackUsed.
func (r *Router) Complete(ctx context.Context, task TaskType, messages []Message, opts *Options) (*Response, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}

	route, ok := r.routes[task]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, task)
	}

	response, primaryErr := r.attempt(ctx, route.Primary, messages, opts)
	if primaryErr == nil {
		return response, nil
	}

	if route.Fallback == "" || route.Fallback == route.Primary {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrProviderUnavailable, route.Primary, primaryErr)
	}

	r.logger.Warn("primary provider failed, attempting fallback",
		"task", string(task),
		"primary", route.Primary,
		"fallback", route.Fallback,
		"err", primaryErr)

	response, fallbackErr := r.attempt(ctx, route.Fallback, messages, opts)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: primary %s: %w; fallback %s: %w",
			core.ErrProviderUnavailable, route.Primary, primaryErr, route.Fallback, fallbackErr)
	}

	response.FallbackUsed = true
	return response, nil
}

// attempt runs a single provider call, updating that provider's usage stats
// whatever the outcome.
func (r *Router) attempt(ctx context.Context, provider string, messages []Message, opts *Options) (*Response, error) {
	backend, ok := r.backends[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	if r.limiter != nil && !r.limiter.CanProceed("llm|"+provider, r.limitCalls, r.limitWindow) {
		r.recordFailure(provider, 0)
		return nil, fmt.Errorf("%w: provider %s, retry in %s",
			core.ErrRateLimitExceeded, provider, r.limiter.WaitTime("llm|"+provider))
	}

	start := time.Now()
	response, err := backend.Complete(ctx, messages, opts)
	latency := time.Since(start)

	if err != nil {
		r.recordFailure(provider, latency)
		return nil, err
	}

	response.Provider = provider
	response.Latency = latency
	response.Cost = r.costs.Cost(provider, response.TokensIn, response.TokensOut)
	r.recordSuccess(provider, response)

	return response, nil
}

func (r *Router) recordSuccess(provider string, response *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.providerStats(provider)
	stats.TotalRequests++
	stats.Successes++
	stats.TokensIn += int64(response.TokensIn)
	stats.TokensOut += int64(response.TokensOut)
	stats.CostEstimate += response.Cost
	stats.RollingLatencyMs = rollLatency(stats.RollingLatencyMs, response.Latency)
}

func (r *Router) recordFailure(provider string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.providerStats(provider)
	stats.TotalRequests++
	stats.Failures++
	if latency > 0 {
		stats.RollingLatencyMs = rollLatency(stats.RollingLatencyMs, latency)
	}
}

// providerStats must be called with the mutex held.
func (r *Router) providerStats(provider string) *ProviderUsageStats {
	stats, ok := r.stats[provider]
	if !ok {
		stats = &ProviderUsageStats{Provider: provider}
		r.stats[provider] = stats
	}
	return stats
}

func rollLatency(current float64, latency time.Duration) float64 {
	ms := float64(latency.Milliseconds())
	if current == 0 {
		return ms
	}
	return latencyAlpha*ms + (1-latencyAlpha)*current
}

// UsageSnapshot returns a copy of every provider's usage stats, ordered by
// provider name.
func (r *Router) UsageSnapshot() []ProviderUsageStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]ProviderUsageStats, 0, len(r.stats))
	for _, stats := range r.stats {
		snapshot = append(snapshot, *stats)
	}
	slices.SortFunc(snapshot, func(a, b ProviderUsageStats) int {
		if a.Provider < b.Provider {
			return -1
		}
		if a.Provider > b.Provider {
			return 1
		}
		return 0
	})
	return snapshot
}
