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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sievework/prospector/core"
)

// searchResponse is the wire shape of the search API the search-query
// protocol targets (newsapi.org-compatible).
type searchResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Content     string    `json:"content"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// searchFetcher runs a configured search API query. The source endpoint is
// the complete query URL, credentials included, as configured by the
// operator.
type searchFetcher struct {
	settings *settings
}

func newSearchFetcher(s *settings) *searchFetcher {
	return &searchFetcher{settings: s}
}

func (f *searchFetcher) Fetch(ctx context.Context, source *core.Source) ([]*core.Candidate, error) {
	var payload searchResponse

	err := f.settings.get(ctx, source.Endpoint, func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedFeed, err)
		}
		if payload.Status != "" && payload.Status != "ok" {
			return fmt.Errorf("%w: search api status %q", ErrUpstreamRejected, payload.Status)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("running search query %s: %w", source.ID, err)
	}

	now := f.settings.clock.Now()
	candidates := make([]*core.Candidate, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if article.URL == "" || article.Title == "" {
			continue
		}
		body := article.Description
		if body == "" {
			body = article.Content
		}
		candidates = append(candidates, &core.Candidate{
			SourceID:  source.ID,
			Title:     article.Title,
			RawBody:   body,
			Link:      article.URL,
			FetchedAt: now,
		})
	}

	return candidates, nil
}
