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

// Package ingestion drives the whole pipeline: scheduler, fetch, dedup,
// relevance, enrichment, and persistence.
//
// The Coordinator polls the scheduler for due sources and runs each
// source's chain on a bounded worker pool, independently and in parallel.
// One source's outage never halts the batch: fetch failures become
// scheduler outcomes and event records, not propagated errors. Each chain
// runs under its own deadline; a chain that overruns is cancelled, its
// partial work discarded, and the attempt recorded as a failure.
//
// All shared state lives in the PipelineContext, constructed once and
// passed by reference. There are no package-level registries.
package ingestion
