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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sievework/prospector/core"
)

const grantPage = `<html>
<head><title>Rural Water Grant</title><script>noise();</script></head>
<body>
  <h1>Rural Water Grant</h1>
  <p>The Clearwater Foundation offers grants of NGN 2,000,000 for boreholes.
  Applications close 2026-10-01.</p>
</body>
</html>`

func crawlRecord(link string) *core.EnrichedRecord {
	return &core.EnrichedRecord{
		Candidate: core.Candidate{
			SourceID: "feed-1",
			Title:    "Rural Water Grant",
			Link:     link,
			RawBody:  "Short teaser only.",
		},
	}
}

func TestDeepCrawlExtractsFromPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(grantPage))
	}))
	defer server.Close()

	completer := &countingCompleter{
		content: `{"organization":"Clearwater Foundation","amount":"NGN 2,000,000","currency":"NGN","deadline":"2026-10-01","location":"","category":"water","contact":"","summary":"Borehole grants."}`,
	}
	stage, err := NewDeepCrawl(completer, server.Client(), 5)
	require.NoError(t, err)

	record := crawlRecord(server.URL)
	filled, err := stage.Enrich(context.Background(), record)
	require.NoError(t, err)

	assert.Contains(t, filled, core.FieldOrganization)
	assert.Contains(t, filled, core.FieldDeadline)

	org, _ := record.Field(core.FieldOrganization)
	assert.Equal(t, "Clearwater Foundation", org.Value)
	assert.Equal(t, crawlConfidence, org.Confidence)
	assert.Equal(t, "deep_crawl", org.Stage)

	require.Len(t, record.Provenance, 1)
	assert.Equal(t, "test", record.Provenance[0].Provider)
}

func TestDeepCrawlBudgetPerRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(grantPage))
	}))
	defer server.Close()

	completer := &countingCompleter{}
	stage, err := NewDeepCrawl(completer, server.Client(), 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := stage.Enrich(context.Background(), crawlRecord(server.URL))
		require.NoError(t, err)
	}

	_, err = stage.Enrich(context.Background(), crawlRecord(server.URL))
	assert.ErrorIs(t, err, ErrBudgetExhausted)

	// A new run restores the budget.
	stage.beginRun()
	_, err = stage.Enrich(context.Background(), crawlRecord(server.URL))
	assert.NoError(t, err)
}

func TestDeepCrawlUnparsableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(grantPage))
	}))
	defer server.Close()

	completer := &countingCompleter{content: "sorry, I cannot help with that"}
	stage, err := NewDeepCrawl(completer, server.Client(), 5)
	require.NoError(t, err)

	_, err = stage.Enrich(context.Background(), crawlRecord(server.URL))
	assert.ErrorIs(t, err, ErrUnparsableExtraction)
}

func TestDeepCrawlFencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(grantPage))
	}))
	defer server.Close()

	completer := &countingCompleter{
		content: "```json\n{\"organization\":\"Clearwater Foundation\",\"amount\":\"\",\"currency\":\"\",\"deadline\":\"\",\"location\":\"\",\"category\":\"\",\"contact\":\"\",\"summary\":\"\"}\n```",
	}
	stage, err := NewDeepCrawl(completer, server.Client(), 5)
	require.NoError(t, err)

	record := crawlRecord(server.URL)
	filled, err := stage.Enrich(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, []string{core.FieldOrganization}, filled)
}

func TestDeepCrawlRequiresRouter(t *testing.T) {
	_, err := NewDeepCrawl(nil, nil, 5)
	assert.ErrorIs(t, err, ErrRouterRequired)
}

func TestDeepCrawlPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	completer := &countingCompleter{}
	stage, err := NewDeepCrawl(completer, server.Client(), 5)
	require.NoError(t, err)

	_, err = stage.Enrich(context.Background(), crawlRecord(server.URL))
	require.Error(t, err)
	assert.Zero(t, completer.calls.Load(), "no LLM call without page text")
	assert.False(t, errors.Is(err, ErrBudgetExhausted))
}
