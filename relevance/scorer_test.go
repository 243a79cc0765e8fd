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

package relevance

import (
	"testing"

	"github.com/sievework/prospector/core"
)

func testSource() *core.Source {
	return &core.Source{
		ID:             "feed-1",
		DomainKeywords: []string{"grant", "health"},
		GeoKeywords:    []string{"lagos"},
	}
}

func TestScoreRichCandidate(t *testing.T) {
	scorer := NewScorer(0)
	candidate := &core.Candidate{
		Title:   "Health grant for Lagos clinics",
		RawBody: "Apply before the deadline. Funding of $50,000 per award.",
	}

	score := scorer.Score(candidate, testSource())
	if score < 0.8 {
		t.Errorf("expected a high score for a dense candidate, got %v", score)
	}
	if score > 1 {
		t.Errorf("score must be clamped to 1, got %v", score)
	}
}

func TestScoreIrrelevantCandidate(t *testing.T) {
	scorer := NewScorer(0)
	candidate := &core.Candidate{
		Title:   "Traffic congestion worsens",
		RawBody: "Commuters report longer travel times this week.",
	}

	score, ok := scorer.Accept(candidate, testSource())
	if ok {
		t.Errorf("irrelevant candidate passed the gate with score %v", score)
	}
}

func TestAcceptHonorsConfiguredCutoff(t *testing.T) {
	candidate := &core.Candidate{
		Title:   "Grant announced",
		RawBody: "A small grant.",
	}
	source := testSource()

	lenient := NewScorer(0.1)
	if _, ok := lenient.Accept(candidate, source); !ok {
		t.Error("candidate should pass a lenient cutoff")
	}

	strict := NewScorer(0.9)
	if _, ok := strict.Accept(candidate, source); ok {
		t.Error("candidate should fail a strict cutoff")
	}
}

func TestNewScorerDefaultCutoff(t *testing.T) {
	if got := NewScorer(0).Cutoff(); got != DefaultCutoff {
		t.Errorf("expected default cutoff %v, got %v", DefaultCutoff, got)
	}
	if got := NewScorer(0.5).Cutoff(); got != 0.5 {
		t.Errorf("expected configured cutoff 0.5, got %v", got)
	}
}

func TestCoverageEmptyKeywords(t *testing.T) {
	if got := coverage("anything", nil); got != 1 {
		t.Errorf("empty keyword set should count as covered, got %v", got)
	}
}
