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
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sievework/prospector/ai"
	"github.com/sievework/prospector/core"
)

// countingCompleter counts LLM calls and returns a canned extraction.
type countingCompleter struct {
	calls   atomic.Int32
	content string
	err     error
}

func (c *countingCompleter) Complete(_ context.Context, _ ai.TaskType, _ []ai.Message, _ *ai.Options) (*ai.Response, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	content := c.content
	if content == "" {
		content = `{"organization":"","amount":"","currency":"","deadline":"","location":"","category":"","contact":"","summary":""}`
	}
	return &ai.Response{Content: content, Provider: "test"}, nil
}

// fullyPopulated returns a record with every enrichable field settled at
// high confidence.
func fullyPopulated() *core.EnrichedRecord {
	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			SourceID: "feed-1",
			Title:    "Community Health Grant",
			Link:     "https://example.org/grant",
			RawBody:  "Complete announcement text.",
		},
	}
	for _, name := range []string{
		core.FieldOrganization, core.FieldAmount, core.FieldCurrency,
		core.FieldDeadline, core.FieldLocation, core.FieldCategory,
		core.FieldContact, core.FieldSummary,
	} {
		record.SetField(name, core.FieldValue{Value: "known", Confidence: 0.95, Stage: "prior"})
	}
	return record
}

func TestPipelinePrePopulatedRecordMakesNoNetworkCalls(t *testing.T) {
	var pageFetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer server.Close()

	completer := &countingCompleter{}
	crawl, err := NewDeepCrawl(completer, server.Client(), 5)
	require.NoError(t, err)
	search, err := NewSearchEnrichment(completer, server.Client(), server.URL, 10)
	require.NoError(t, err)

	pipeline, err := NewPipeline(
		WithStage(NewBaseExtraction()),
		WithStage(crawl),
		WithStage(search),
	)
	require.NoError(t, err)

	record := fullyPopulated()
	record.Link = server.URL
	disposition := pipeline.Process(context.Background(), record)

	require.True(t, disposition.IsAccepted())
	assert.Zero(t, pageFetches.Load(), "settled stages must not touch the network")
	assert.Zero(t, completer.calls.Load(), "settled stages must not call the router")
	assert.Empty(t, record.StagesApplied)
	assert.Positive(t, record.Confidence)
}

func TestPipelineSettledSignalSkipsNetworkStages(t *testing.T) {
	var pageFetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer server.Close()

	completer := &countingCompleter{}
	crawl, err := NewDeepCrawl(completer, server.Client(), 5)
	require.NoError(t, err)
	search, err := NewSearchEnrichment(completer, server.Client(), server.URL, 10)
	require.NoError(t, err)

	pipeline, err := NewPipeline(
		WithStage(NewBaseExtraction()),
		WithStage(crawl),
		WithStage(search),
	)
	require.NoError(t, err)

	// Only the mandatory fields are present: title, link, and the funding
	// signal. Organization, contact, and the rest stay empty.
	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			SourceID: "feed-1",
			Title:    "Rural Water Grant",
			Link:     server.URL,
			RawBody:  "Short announcement.",
		},
	}
	record.SetField(core.FieldAmount, core.FieldValue{Value: "$40,000", Confidence: 0.95, Stage: "prior"})
	record.SetField(core.FieldDeadline, core.FieldValue{Value: "2026-10-01", Confidence: 0.95, Stage: "prior"})

	disposition := pipeline.Process(context.Background(), record)

	require.True(t, disposition.IsAccepted())
	assert.Zero(t, pageFetches.Load(), "a record with its signal settled must not be crawled")
	assert.Zero(t, completer.calls.Load(), "a record with its signal settled must not call the router")
}

func TestPipelineDropsInsufficientSignal(t *testing.T) {
	pipeline, err := NewPipeline(WithStage(NewBaseExtraction()))
	require.NoError(t, err)

	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			SourceID: "feed-1",
			Title:    "Weekly roundup",
			Link:     "https://example.org/roundup",
			RawBody:  "No amounts, no dates, nothing actionable.",
		},
	}

	disposition := pipeline.Process(context.Background(), record)
	assert.Equal(t, core.DropInsufficientSignal, disposition.Reason)
	assert.False(t, disposition.IsAccepted())
}

func TestPipelineAcceptsRecordWithSignal(t *testing.T) {
	pipeline, err := NewPipeline(WithStage(NewBaseExtraction()))
	require.NoError(t, err)

	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			SourceID: "feed-1",
			Title:    "Health grant",
			Link:     "https://example.org/grant",
			RawBody:  "Awards of $25,000. Deadline: 2026-07-01.",
		},
	}

	disposition := pipeline.Process(context.Background(), record)
	require.True(t, disposition.IsAccepted())
	assert.Contains(t, record.StagesApplied, "base_extraction")
}

// failingStage always errors.
type failingStage struct{}

func (failingStage) Name() string      { return "failing" }
func (failingStage) Targets() []string { return []string{core.FieldOrganization} }
func (failingStage) Enrich(context.Context, *core.EnrichedRecord) ([]string, error) {
	return nil, errors.New("provider melted")
}

func TestPipelineStageFailureIsTerminalForBareRecord(t *testing.T) {
	pipeline, err := NewPipeline(WithStage(failingStage{}))
	require.NoError(t, err)

	record := &core.EnrichedRecord{
		Candidate: core.Candidate{Title: "Bare", Link: "https://example.org/bare"},
	}

	disposition := pipeline.Process(context.Background(), record)
	assert.Equal(t, core.DropEnrichmentFailed, disposition.Reason)
}

func TestPipelineStageFailureDoesNotSinkCompleteRecord(t *testing.T) {
	pipeline, err := NewPipeline(
		WithStage(NewBaseExtraction()),
		WithStage(failingStage{}),
	)
	require.NoError(t, err)

	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			Title:   "Funded anyway",
			Link:    "https://example.org/funded",
			RawBody: "Grants of $10,000, deadline 2026-05-01.",
		},
	}

	disposition := pipeline.Process(context.Background(), record)
	assert.True(t, disposition.IsAccepted(),
		"a record that stands without the failed stage's output survives")
}

func TestPipelineBudgetExhaustionIsNotFailure(t *testing.T) {
	completer := &countingCompleter{}
	crawl, err := NewDeepCrawl(completer, nil, 1)
	require.NoError(t, err)

	// Burn the budget.
	require.True(t, crawl.acquire())

	pipeline, err := NewPipeline(
		WithStage(NewBaseExtraction()),
		WithStage(crawl),
	)
	require.NoError(t, err)

	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			Title:   "Funded",
			Link:    "https://example.org/x",
			RawBody: "Grant of $5,000 closing 2026-08-01.",
		},
	}

	disposition := pipeline.Process(context.Background(), record)
	assert.True(t, disposition.IsAccepted(),
		"an exhausted budget must not mark the record failed")
}
