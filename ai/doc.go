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


// Package ai provides the LLM routing layer used by the enrichment stages.
//
// # Design
//
// Every LLM call is typed with a TaskType, and a deterministic routing table
// maps each task type to a primary provider chosen for cost and latency fit:
// a cheap provider handles bulk classification and field extraction, a
// premium provider handles the critical tasks. Routing is intentionally not
// dynamically cost-optimized; a static table keeps latency predictable.
//
// On primary failure the Router makes exactly one fallback attempt against
// the designated alternate provider before surfacing an error. Both attempts
// update per-provider usage stats (tokens, cost at published rates, rolling
// latency), and FallbackUsed is set on the response for observability. The
// single-fallback policy bounds worst-case latency.
//
// # Implementation Packages
//
//   - ai/compat: backend for OpenAI-compatible APIs (Ollama, LocalAI, vLLM)
//     via langchaingo
//   - ai/openai: backend for the OpenAI platform via the official SDK
//   - ai/mock: test doubles for unit testing without live providers
//
// Public backend constructors return the LLMBackend interface to keep the
// router decoupled from any provider SDK; mock constructors return concrete
// types so tests can inject behavior and assert call counts.
package ai
