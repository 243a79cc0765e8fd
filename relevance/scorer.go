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
	"strings"

	"github.com/sievework/prospector/core"
)

// DefaultCutoff is the score below which candidates are rejected when no
// cutoff is configured.
const DefaultCutoff = 0.3

// Blend weights. Domain fit dominates; geography and funding-signal terms
// refine it.
const (
	domainWeight = 0.4
	geoWeight    = 0.2
	signalWeight = 0.4

	// signalSaturation is the number of distinct signal terms at which the
	// signal component maxes out.
	signalSaturation = 4
)

// signalTerms are generic funding-opportunity markers scored independently
// of the source's configured keywords.
var signalTerms = []string{
	"grant", "funding", "fund", "deadline", "apply", "application",
	"award", "scholarship", "fellowship", "proposal", "call for",
}

// Scorer gates candidates on keyword density.
type Scorer struct {
	cutoff float64
}

// NewScorer creates a scorer with the given cutoff. A non-positive cutoff
// falls back to DefaultCutoff.
func NewScorer(cutoff float64) *Scorer {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return &Scorer{cutoff: cutoff}
}

// Cutoff returns the configured rejection threshold.
func (s *Scorer) Cutoff() float64 {
	return s.cutoff
}

// Score computes the candidate's relevance in [0,1] against its source's
// keyword sets.
func (s *Scorer) Score(candidate *core.Candidate, source *core.Source) float64 {
	text := strings.ToLower(candidate.Title + " " + candidate.RawBody)

	score := domainWeight*coverage(text, source.DomainKeywords) +
		geoWeight*coverage(text, source.GeoKeywords) +
		signalWeight*signalDensity(text)

	if score > 1 {
		score = 1
	}
	return score
}

// Accept reports whether the candidate clears the cutoff, returning the
// score either way so it can be recorded on the resulting record.
func (s *Scorer) Accept(candidate *core.Candidate, source *core.Source) (float64, bool) {
	score := s.Score(candidate, source)
	return score, score >= s.cutoff
}

// coverage is the fraction of keywords present in the text. An empty
// keyword set counts as fully covered: nothing was asked for.
func coverage(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1
	}
	hits := 0
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// signalDensity counts distinct funding-signal terms, saturating at
// signalSaturation.
func signalDensity(text string) float64 {
	hits := 0
	for _, term := range signalTerms {
		if strings.Contains(text, term) {
			hits++
			if hits == signalSaturation {
				break
			}
		}
	}
	return float64(hits) / signalSaturation
}
