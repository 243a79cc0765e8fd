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

// Package enrich fills a record's structured fields through ordered,
// short-circuiting stages.
//
// Stages run cheapest first: rule-based extraction over text already in
// hand, then a crawl of the record's own link, then bounded external
// search. A stage is skipped entirely once all of its target fields have
// reached the confidence threshold, so a record that arrives complete costs
// zero network calls. Stage failures are terminal for the record, never for
// the batch.
//
// The crawl stage is capped at a fixed number of fetches per run and the
// search stage draws from a global hourly query budget, so enrichment cost
// stays bounded however many candidates a run produces.
package enrich
