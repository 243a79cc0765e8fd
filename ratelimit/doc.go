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


// Package ratelimit provides the shared throttling primitives every network
// and LLM call in the pipeline routes through.
//
// Limiter is a fixed-window counter keyed by an arbitrary string, typically
// a provider name or target domain. It is driven by a core.Clock so tests
// can verify window behavior with simulated time.
//
// RetryWithBackoff wraps an operation with exponential backoff, retrying
// only errors the core taxonomy classifies as transient; validation and 4xx
// style failures fail fast.
package ratelimit
