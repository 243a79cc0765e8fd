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

package ingestion

import "errors"

var (
	// ErrContextRequired is returned when a coordinator is built without a
	// pipeline context.
	ErrContextRequired = errors.New("pipeline context is required")

	// ErrSourcesRequired is returned when the pipeline context lacks a
	// source repository.
	ErrSourcesRequired = errors.New("source repository is required")

	// ErrDedupRequired is returned when the pipeline context lacks a dedup
	// index.
	ErrDedupRequired = errors.New("dedup index is required")

	// ErrRecordsRequired is returned when the pipeline context lacks a
	// record repository.
	ErrRecordsRequired = errors.New("record repository is required")

	// ErrSchedulerRequired is returned when a coordinator is built without
	// a scheduler.
	ErrSchedulerRequired = errors.New("scheduler is required")

	// ErrFetcherRequired is returned when a coordinator is built without a
	// fetcher.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrEnricherRequired is returned when a coordinator is built without
	// an enrichment pipeline.
	ErrEnricherRequired = errors.New("enrichment pipeline is required")

	// ErrScorerRequired is returned when a coordinator is built without a
	// relevance scorer.
	ErrScorerRequired = errors.New("relevance scorer is required")
)
