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

package ingestion_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/enrich"
	"github.com/sievework/prospector/fetch"
	"github.com/sievework/prospector/ingestion"
	"github.com/sievework/prospector/relevance"
	"github.com/sievework/prospector/schedule"
	badgerstore "github.com/sievework/prospector/storage/badger"
)

// Five entries: two clear the keyword gate (grant+lagos), one of those two
// duplicates an already-committed hash. Exactly one record should land.
const e2eFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Funding Watch</title>
    <item>
      <title>Lagos startup grant round opens</title>
      <link>https://example.org/grants/lagos-startup</link>
      <description>Grants of $25,000 for Lagos startups. Deadline: 2026-09-30.</description>
    </item>
    <item>
      <title>Lagos health grant awarded</title>
      <link>https://example.org/grants/lagos-health</link>
      <description>Grant of $40,000 for Lagos clinics. Apply by 2026-08-15.</description>
    </item>
    <item>
      <title>Traffic worsens on the mainland</title>
      <link>https://example.org/news/traffic</link>
      <description>Commute times rise across Lagos.</description>
    </item>
    <item>
      <title>Nairobi agriculture fund expands</title>
      <link>https://example.org/grants/nairobi</link>
      <description>Funding for Kenyan smallholders.</description>
    </item>
    <item>
      <title>Editorial: remote work</title>
      <link>https://example.org/opinion/remote</link>
      <description>Opinions on the future of offices.</description>
    </item>
  </channel>
</rss>`

type fixture struct {
	coordinator *ingestion.Coordinator
	pctx        *ingestion.PipelineContext
	scheduler   *schedule.AdaptiveScheduler
	server      *httptest.Server
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()

	sources, dedup, records, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	scheduler, err := schedule.NewScheduler(sources, schedule.WithClock(clock))
	require.NoError(t, err)

	dispatcher, err := fetch.NewDispatcher(
		fetch.WithHTTPClient(server.Client()),
		fetch.WithRetryBase(time.Millisecond),
	)
	require.NoError(t, err)

	enricher, err := enrich.NewPipeline(enrich.WithStage(enrich.NewBaseExtraction()))
	require.NoError(t, err)

	pctx := &ingestion.PipelineContext{
		Sources: sources,
		Dedup:   dedup,
		Records: records,
	}

	coordinator, err := ingestion.NewCoordinator(
		pctx, scheduler, dispatcher, relevance.NewScorer(0.2), enricher,
		ingestion.WithPoolSize(2),
	)
	require.NoError(t, err)
	t.Cleanup(coordinator.Release)

	return &fixture{
		coordinator: coordinator,
		pctx:        pctx,
		scheduler:   scheduler,
		server:      server,
	}
}

func feedSource(id, endpoint string) *core.Source {
	return &core.Source{
		ID:             id,
		Protocol:       core.ProtocolRSS,
		Endpoint:       endpoint,
		DomainKeywords: []string{"grant"},
		GeoKeywords:    []string{"lagos"},
		BaseInterval:   15 * time.Minute,
	}
}

func TestEndToEndSingleRecord(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(e2eFeed))
	}))
	ctx := context.Background()

	require.NoError(t, f.pctx.Sources.PutSource(ctx, feedSource("feed-1", f.server.URL)))
	require.NoError(t, f.scheduler.Load(ctx))

	// The health-grant entry was committed in an earlier run.
	duplicate := core.ContentHash("Lagos health grant awarded", "https://example.org/grants/lagos-health")
	require.NoError(t, f.pctx.Dedup.Commit(ctx, duplicate))

	events, err := f.coordinator.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, core.EventSuccess, event.Status)
	assert.Equal(t, 2, event.ItemsFound, "only gated candidates count as found")
	assert.Equal(t, 1, event.ItemsAccepted)
	assert.Equal(t, 1, event.Dropped[core.DropDuplicate.String()])
	assert.NotEmpty(t, event.ID)

	records, err := f.pctx.Records.ListRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1, "exactly one record must land")
	assert.Equal(t, "Lagos startup grant round opens", records[0].Title)
	assert.Contains(t, records[0].StagesApplied, "base_extraction")

	amount, ok := records[0].Field(core.FieldAmount)
	require.True(t, ok)
	assert.Equal(t, "$25,000", amount.Value)

	// Source metrics updated and priority recomputed.
	source, err := f.pctx.Sources.GetSource(ctx, "feed-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), source.SuccessCount)
	assert.Zero(t, source.ConsecutiveFailures)
	assert.Positive(t, source.Priority)
	assert.NotZero(t, source.CurrentInterval)
	assert.False(t, source.LastCheckedAt.IsZero())
}

func TestEndToEndRerunYieldsNoDuplicates(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(e2eFeed))
	}))
	ctx := context.Background()

	require.NoError(t, f.pctx.Sources.PutSource(ctx, feedSource("feed-1", f.server.URL)))
	require.NoError(t, f.scheduler.Load(ctx))

	_, err := f.coordinator.RunOnce(ctx)
	require.NoError(t, err)

	// Force the source due again and rerun: everything is a duplicate now.
	_, err = f.scheduler.Reactivate(ctx, "feed-1")
	require.NoError(t, err)
	events, err := f.coordinator.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Zero(t, events[0].ItemsAccepted)
	assert.Equal(t, 2, events[0].Dropped[core.DropDuplicate.String()])

	records, err := f.pctx.Records.ListRecords(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2, "first run's records only")
}

func TestFetchFailureBecomesSchedulerOutcome(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	ctx := context.Background()

	require.NoError(t, f.pctx.Sources.PutSource(ctx, feedSource("feed-1", f.server.URL)))
	require.NoError(t, f.scheduler.Load(ctx))

	events, err := f.coordinator.RunOnce(ctx)
	require.NoError(t, err, "one source's outage must not fail the batch")
	require.Len(t, events, 1)
	assert.Equal(t, core.EventFailure, events[0].Status)
	assert.NotEmpty(t, events[0].Errors)

	source, err := f.pctx.Sources.GetSource(ctx, "feed-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), source.FailureCount)
	assert.Equal(t, 1, source.ConsecutiveFailures)
}

func TestSubmissionBypassesScheduler(t *testing.T) {
	page := `<html><head><title>Flood Relief Grant</title></head>
<body><p>Grants of $15,000 for flood-affected communities. Deadline: 2026-11-01.</p></body></html>`
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	ctx := context.Background()

	submission := &core.Source{
		ID:       "submitted-1",
		Protocol: core.ProtocolUserSubmission,
		Endpoint: f.server.URL,
	}

	event, err := f.coordinator.Submit(ctx, submission)
	require.NoError(t, err)
	assert.Equal(t, 1, event.ItemsAccepted)

	records, err := f.pctx.Records.ListRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Flood Relief Grant", records[0].Title)
}

// cannedFetcher returns a fixed candidate batch regardless of source.
type cannedFetcher struct {
	candidates []*core.Candidate
}

func (f cannedFetcher) Fetch(context.Context, *core.Source) ([]*core.Candidate, error) {
	return f.candidates, nil
}

func TestMalformedCandidateCountedAsInvalid(t *testing.T) {
	sources, dedup, records, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	ctx := context.Background()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	scheduler, err := schedule.NewScheduler(sources, schedule.WithClock(clock))
	require.NoError(t, err)

	enricher, err := enrich.NewPipeline(enrich.WithStage(enrich.NewBaseExtraction()))
	require.NoError(t, err)

	// One candidate arrives without a link; it must be counted under its
	// own reason, not folded into the relevance drops.
	fetcher := cannedFetcher{candidates: []*core.Candidate{
		{
			SourceID: "feed-1",
			Title:    "Lagos grant notice with no link",
			RawBody:  "Grant of $5,000 for Lagos groups. Deadline: 2026-09-01.",
		},
		{
			SourceID: "feed-1",
			Title:    "Lagos startup grant round opens",
			Link:     "https://example.org/grants/lagos-startup",
			RawBody:  "Grants of $25,000 for Lagos startups. Deadline: 2026-09-30.",
		},
	}}

	pctx := &ingestion.PipelineContext{Sources: sources, Dedup: dedup, Records: records}
	coordinator, err := ingestion.NewCoordinator(
		pctx, scheduler, fetcher, relevance.NewScorer(0.2), enricher,
		ingestion.WithPoolSize(1),
	)
	require.NoError(t, err)
	t.Cleanup(coordinator.Release)

	require.NoError(t, pctx.Sources.PutSource(ctx, feedSource("feed-1", "https://example.org/feed")))
	require.NoError(t, scheduler.Load(ctx))

	events, err := coordinator.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, 1, event.ItemsAccepted)
	assert.Equal(t, 1, event.Dropped[core.DropInvalid.String()])
	assert.Zero(t, event.Dropped[core.DropLowRelevance.String()])
}

func TestSubmitRejectsPolledProtocols(t *testing.T) {
	f := newFixture(t, http.NewServeMux())

	_, err := f.coordinator.Submit(context.Background(), feedSource("feed-1", f.server.URL))
	assert.ErrorIs(t, err, core.ErrInvalidProtocol)
}
