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
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/sievework/prospector/core"
)

// rssFetcher polls RSS and Atom feeds. Items must match at least one domain
// keyword and at least one geography keyword (in title plus summary) before
// they become candidates; everything else is noise the later, costlier
// stages should never see.
type rssFetcher struct {
	settings *settings
	parser   *gofeed.Parser
}

func newRSSFetcher(s *settings) *rssFetcher {
	return &rssFetcher{settings: s, parser: gofeed.NewParser()}
}

func (f *rssFetcher) Fetch(ctx context.Context, source *core.Source) ([]*core.Candidate, error) {
	var feed *gofeed.Feed

	err := f.settings.get(ctx, source.Endpoint, func(resp *http.Response) error {
		parsed, err := f.parser.Parse(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedFeed, err)
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", source.ID, err)
	}

	now := f.settings.clock.Now()
	candidates := make([]*core.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		text := item.Title + " " + item.Description
		if !matchesAny(text, source.DomainKeywords) || !matchesAny(text, source.GeoKeywords) {
			continue
		}
		candidates = append(candidates, &core.Candidate{
			SourceID:  source.ID,
			Title:     item.Title,
			RawBody:   item.Description,
			Link:      item.Link,
			FetchedAt: now,
		})
	}

	return candidates, nil
}

// matchesAny reports whether text contains at least one of the keywords,
// case-insensitively. An empty keyword set matches everything.
func matchesAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
