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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/ratelimit"
)

const (
	// DefaultSearchQueriesPerHour is the global search budget shared by
	// every record in every run.
	DefaultSearchQueriesPerHour = 30

	searchConfidence = 0.6
	searchTimeout    = 15 * time.Second
	searchTopResults = 3
)

// SearchEnrichment runs one bounded external search query per record that
// still has gaps after crawling, then LLM-extracts fields from the top
// results. The hourly budget is a token bucket shared across runs, so a
// burst of candidates cannot drain a whole day's quota.
type SearchEnrichment struct {
	completer Completer
	client    *http.Client
	endpoint  string
	budget    *rate.Limiter
}

// NewSearchEnrichment creates the search stage against a newsapi-compatible
// endpoint. queriesPerHour caps the global budget; non-positive values get
// DefaultSearchQueriesPerHour.
func NewSearchEnrichment(completer Completer, client *http.Client, endpoint string, queriesPerHour int) (*SearchEnrichment, error) {
	if completer == nil {
		return nil, ErrRouterRequired
	}
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if client == nil {
		client = &http.Client{Timeout: searchTimeout}
	}
	if queriesPerHour <= 0 {
		queriesPerHour = DefaultSearchQueriesPerHour
	}

	return &SearchEnrichment{
		completer: completer,
		client:    client,
		endpoint:  endpoint,
		budget:    rate.NewLimiter(rate.Limit(float64(queriesPerHour)/3600.0), queriesPerHour),
	}, nil
}

func (s *SearchEnrichment) Name() string { return "search_enrichment" }

func (s *SearchEnrichment) networkBound() {}

func (s *SearchEnrichment) Targets() []string {
	return []string{
		core.FieldOrganization,
		core.FieldAmount,
		core.FieldDeadline,
		core.FieldLocation,
		core.FieldCategory,
	}
}

func (s *SearchEnrichment) Enrich(ctx context.Context, record *core.EnrichedRecord) ([]string, error) {
	if !s.budget.Allow() {
		return nil, ErrBudgetExhausted
	}

	results, err := s.search(ctx, searchQuery(record))
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", record.Title, err)
	}
	if results == "" {
		return nil, nil
	}

	prompt := "Title: " + record.Title + "\n\nSearch results:\n" + results
	return extractFields(ctx, s.completer, record, s.Name(), prompt, searchConfidence)
}

// searchQuery builds the query from the record title plus the organization
// when an earlier stage found one.
func searchQuery(record *core.EnrichedRecord) string {
	query := record.Title
	if org, ok := record.Field(core.FieldOrganization); ok && org.Value != "" {
		query += " " + org.Value
	}
	return query
}

func (s *SearchEnrichment) search(ctx context.Context, query string) (string, error) {
	endpoint, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	var payload struct {
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
		} `json:"articles"`
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrTransientNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: search api", core.ErrRateLimitExceeded)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", core.ErrTransientNetwork, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search api returned %s", resp.Status)
		}

		return json.NewDecoder(resp.Body).Decode(&payload)
	}

	if err := ratelimit.RetryWithBackoff(ctx, operation, ratelimit.DefaultMaxAttempts, 500*time.Millisecond); err != nil {
		return "", err
	}

	var parts []string
	for i, article := range payload.Articles {
		if i == searchTopResults {
			break
		}
		body := article.Description
		if body == "" {
			body = article.Content
		}
		parts = append(parts, article.Title+": "+body)
	}
	return strings.Join(parts, "\n"), nil
}
