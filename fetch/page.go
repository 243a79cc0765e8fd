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

	"github.com/PuerkitoBio/goquery"

	"github.com/sievework/prospector/core"
)

// maxPageBodyRunes bounds how much page text is carried into the pipeline.
const maxPageBodyRunes = 8192

// pageFetcher retrieves a single admin- or user-submitted URL and turns the
// page itself into one candidate. Submissions skip the keyword gate: a
// human already decided the page is worth a look.
type pageFetcher struct {
	settings *settings
}

func newPageFetcher(s *settings) *pageFetcher {
	return &pageFetcher{settings: s}
}

func (f *pageFetcher) Fetch(ctx context.Context, source *core.Source) ([]*core.Candidate, error) {
	var candidate *core.Candidate

	err := f.settings.get(ctx, source.Endpoint, func(resp *http.Response) error {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedFeed, err)
		}

		title := strings.TrimSpace(doc.Find("title").First().Text())
		if title == "" {
			title = strings.TrimSpace(doc.Find("h1").First().Text())
		}
		if title == "" {
			title = source.Endpoint
		}

		candidate = &core.Candidate{
			SourceID:  source.ID,
			Title:     title,
			RawBody:   pageText(doc),
			Link:      source.Endpoint,
			FetchedAt: f.settings.clock.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching submitted page %s: %w", source.ID, err)
	}

	return []*core.Candidate{candidate}, nil
}

// pageText extracts readable body text, preferring the meta description as
// a lead paragraph when present.
func pageText(doc *goquery.Document) string {
	var parts []string

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			parts = append(parts, desc)
		}
	}

	doc.Find("script, style, nav, footer").Remove()
	body := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if body != "" {
		parts = append(parts, body)
	}

	text := strings.Join(parts, " ")
	runes := []rune(text)
	if len(runes) > maxPageBodyRunes {
		text = string(runes[:maxPageBodyRunes])
	}
	return text
}
