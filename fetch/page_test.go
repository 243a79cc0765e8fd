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

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sievework/prospector/core"
)

const submittedPage = `<!DOCTYPE html>
<html>
<head>
  <title>Community Health Grant 2026</title>
  <meta name="description" content="Applications open until 30 June 2026.">
  <script>trackEverything();</script>
</head>
<body>
  <nav>Home | About</nav>
  <h1>Community Health Grant</h1>
  <p>Grants of up to $50,000 for community health projects.</p>
  <footer>Contact us</footer>
</body>
</html>`

func submissionSource(endpoint string) *core.Source {
	return &core.Source{
		ID:       "submission-1",
		Protocol: core.ProtocolUserSubmission,
		Endpoint: endpoint,
	}
}

func TestPageFetcherExtractsCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(submittedPage))
	}))
	defer server.Close()

	dispatcher := testDispatcher(t)
	candidates, err := dispatcher.Fetch(context.Background(), submissionSource(server.URL))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected exactly one candidate for a submitted page, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Title != "Community Health Grant 2026" {
		t.Errorf("unexpected title %q", c.Title)
	}
	if c.Link != server.URL {
		t.Errorf("link should be the submitted URL, got %q", c.Link)
	}
	if !strings.Contains(c.RawBody, "Applications open until 30 June 2026.") {
		t.Errorf("meta description missing from body: %q", c.RawBody)
	}
	if !strings.Contains(c.RawBody, "$50,000") {
		t.Errorf("page text missing from body: %q", c.RawBody)
	}
	if strings.Contains(c.RawBody, "trackEverything") {
		t.Errorf("script content leaked into body: %q", c.RawBody)
	}
}

func TestPageFetcherFallsBackToHeading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Untitled Opportunity</h1></body></html>`))
	}))
	defer server.Close()

	dispatcher := testDispatcher(t)
	candidates, err := dispatcher.Fetch(context.Background(), submissionSource(server.URL))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if candidates[0].Title != "Untitled Opportunity" {
		t.Errorf("expected h1 fallback title, got %q", candidates[0].Title)
	}
}
