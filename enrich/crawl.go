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
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/ratelimit"
)

const (
	// DefaultCrawlBudget caps deep-crawl fetches per run.
	DefaultCrawlBudget = 5

	crawlConfidence = 0.8
	crawlTimeout    = 20 * time.Second
	crawlMaxRunes   = 6000
)

// DeepCrawl fetches the record's own link and runs LLM field extraction
// over the full page text. The per-run fetch budget keeps a prolific run
// from turning into a crawl of the whole web.
type DeepCrawl struct {
	completer Completer
	client    *http.Client
	budget    int

	mu        sync.Mutex
	remaining int
}

// NewDeepCrawl creates the crawl stage. A nil client gets a default with a
// sane timeout; a non-positive budget gets DefaultCrawlBudget.
func NewDeepCrawl(completer Completer, client *http.Client, budget int) (*DeepCrawl, error) {
	if completer == nil {
		return nil, ErrRouterRequired
	}
	if client == nil {
		client = &http.Client{Timeout: crawlTimeout}
	}
	if budget <= 0 {
		budget = DefaultCrawlBudget
	}
	return &DeepCrawl{
		completer: completer,
		client:    client,
		budget:    budget,
		remaining: budget,
	}, nil
}

func (s *DeepCrawl) Name() string { return "deep_crawl" }

func (s *DeepCrawl) networkBound() {}

func (s *DeepCrawl) Targets() []string {
	return []string{
		core.FieldOrganization,
		core.FieldAmount,
		core.FieldCurrency,
		core.FieldDeadline,
		core.FieldLocation,
		core.FieldCategory,
		core.FieldContact,
		core.FieldSummary,
	}
}

func (s *DeepCrawl) beginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = s.budget
}

func (s *DeepCrawl) Enrich(ctx context.Context, record *core.EnrichedRecord) ([]string, error) {
	if !s.acquire() {
		return nil, ErrBudgetExhausted
	}

	text, err := s.fetchPageText(ctx, record.Link)
	if err != nil {
		return nil, fmt.Errorf("crawling %s: %w", record.Link, err)
	}
	if text == "" {
		return nil, nil
	}

	prompt := "Title: " + record.Title + "\n\nPage text:\n" + text
	return extractFields(ctx, s.completer, record, s.Name(), prompt, crawlConfidence)
}

func (s *DeepCrawl) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining <= 0 {
		return false
	}
	s.remaining--
	return true
}

func (s *DeepCrawl) fetchPageText(ctx context.Context, link string) (string, error) {
	var text string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrTransientNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", core.ErrTransientNetwork, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("page returned %s", resp.Status)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return err
		}
		doc.Find("script, style, nav, footer").Remove()
		text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
		return nil
	}

	if err := ratelimit.RetryWithBackoff(ctx, operation, ratelimit.DefaultMaxAttempts, 500*time.Millisecond); err != nil {
		return "", err
	}

	runes := []rune(text)
	if len(runes) > crawlMaxRunes {
		text = string(runes[:crawlMaxRunes])
	}
	return text, nil
}
