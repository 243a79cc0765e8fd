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

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sievework/prospector/core"
)

func TestBaseExtractionParsesFields(t *testing.T) {
	stage := NewBaseExtraction()
	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			Title: "Community Health Grant",
			RawBody: "Grants of up to $50,000 for clinics. Deadline: 30 Jun 2026. " +
				"Contact grants@example.org with questions.",
		},
	}

	filled, err := stage.Enrich(context.Background(), record)
	require.NoError(t, err)
	assert.ElementsMatch(t, filled, []string{
		core.FieldAmount, core.FieldCurrency, core.FieldDeadline,
		core.FieldContact, core.FieldSummary,
	})

	amount, _ := record.Field(core.FieldAmount)
	assert.Equal(t, "$50,000", amount.Value)
	assert.Equal(t, ruleConfidence, amount.Confidence)

	currency, _ := record.Field(core.FieldCurrency)
	assert.Equal(t, "USD", currency.Value)

	deadline, _ := record.Field(core.FieldDeadline)
	assert.Equal(t, "30 Jun 2026", deadline.Value)

	contact, _ := record.Field(core.FieldContact)
	assert.Equal(t, "grants@example.org", contact.Value)

	summary, _ := record.Field(core.FieldSummary)
	assert.Equal(t, summaryConfidence, summary.Confidence)
	assert.NotEmpty(t, summary.Value)
}

func TestBaseExtractionPrefersDeadlineContext(t *testing.T) {
	stage := NewBaseExtraction()
	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			Title:   "Fellowship announced",
			RawBody: "Published 2026-01-05. Applications close 2026-04-01.",
		},
	}

	_, err := stage.Enrich(context.Background(), record)
	require.NoError(t, err)

	deadline, ok := record.Field(core.FieldDeadline)
	require.True(t, ok)
	assert.Equal(t, "2026-04-01", deadline.Value)
}

func TestBaseExtractionISODate(t *testing.T) {
	stage := NewBaseExtraction()
	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			Title:   "Research fund",
			RawBody: "Apply by 2026-09-15 for awards of €10,000.",
		},
	}

	_, err := stage.Enrich(context.Background(), record)
	require.NoError(t, err)

	deadline, _ := record.Field(core.FieldDeadline)
	assert.Equal(t, "2026-09-15", deadline.Value)
	currency, _ := record.Field(core.FieldCurrency)
	assert.Equal(t, "EUR", currency.Value)
}

func TestBaseExtractionNoSignals(t *testing.T) {
	stage := NewBaseExtraction()
	record := &core.EnrichedRecord{
		Candidate: core.Candidate{Title: "Weekly roundup", RawBody: "Nothing of note."},
	}

	filled, err := stage.Enrich(context.Background(), record)
	require.NoError(t, err)

	// Only the low-confidence summary comes out of plain prose.
	assert.Equal(t, []string{core.FieldSummary}, filled)
	assert.False(t, record.HasSignal())
}

func TestSummarizeTruncatesOnWordBoundary(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "funding opportunity "
	}

	summary := summarize(long)
	assert.LessOrEqual(t, len([]rune(summary)), summaryMaxRunes+1)
	assert.NotContains(t, summary, "  ")
}
