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

package enrich

import "errors"

var (
	// ErrRouterRequired is returned when an LLM-backed stage is built
	// without a router.
	ErrRouterRequired = errors.New("llm router is required")

	// ErrBudgetExhausted marks a stage skipped because its fetch or query
	// budget for the current window is spent. Not a failure; the stage may
	// succeed on a later run.
	ErrBudgetExhausted = errors.New("stage budget exhausted")

	// ErrUnparsableExtraction marks an LLM extraction response that was not
	// valid JSON.
	ErrUnparsableExtraction = errors.New("unparsable extraction response")

	// ErrEndpointRequired is returned when the search stage is built
	// without a search API endpoint.
	ErrEndpointRequired = errors.New("search endpoint is required")
)
