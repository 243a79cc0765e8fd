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

import (
	"github.com/sievework/prospector/ai"
	"github.com/sievework/prospector/ratelimit"
	"github.com/sievework/prospector/storage"
)

// PipelineContext owns every piece of shared mutable state the pipeline
// touches. It is constructed once at startup and passed by reference; no
// component reaches for ambient globals.
type PipelineContext struct {
	Sources storage.SourceRepository
	Dedup   storage.DedupIndex
	Records storage.RecordRepository

	// Limiter throttles outbound calls across fetchers and providers.
	Limiter *ratelimit.Limiter

	// Router is the shared LLM routing layer. Optional: a pipeline built
	// without LLM stages runs on rules alone.
	Router *ai.Router
}

// Validate checks that the mandatory collaborators are present.
func (pc *PipelineContext) Validate() error {
	if pc.Sources == nil {
		return ErrSourcesRequired
	}
	if pc.Dedup == nil {
		return ErrDedupRequired
	}
	if pc.Records == nil {
		return ErrRecordsRequired
	}
	return nil
}
