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


// Package core defines the domain model shared by every Prospector component.
//
// The central types are:
//
//   - Source: a configured origin of candidate records (RSS feed, search
//     query, or a submission channel) together with the rolling health
//     metrics the scheduler maintains for it.
//   - Candidate: an ephemeral raw item pulled from a source. Candidates live
//     for exactly one pipeline pass and are never persisted unless they
//     survive deduplication and relevance scoring.
//   - EnrichedRecord: a candidate that passed validation, carrying the
//     structured fields the enrichment stages filled in.
//   - Disposition: the explicit accepted-or-dropped outcome of one candidate,
//     used instead of error values for expected filtering results.
//
// The package also owns content fingerprinting (ContentHash), the error
// taxonomy used across the pipeline, and the Clock abstraction that keeps
// scheduling and rate limiting testable with simulated time.
package core
