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
	"regexp"
	"strings"

	"github.com/sievework/prospector/core"
)

// Confidence assigned by the rule-based extractor. Regex hits are precise
// but summaries are just truncated body text.
const (
	ruleConfidence    = 0.9
	summaryConfidence = 0.5

	summaryMaxRunes = 280
)

var (
	moneyExpr = regexp.MustCompile(`(?i)(US\$|\$|€|£|₦|USD|EUR|GBP|NGN)\s?(\d[\d,]*(?:\.\d+)?)\s?(million|billion|m\b|k\b)?`)

	isoDateExpr  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	textDateExpr = regexp.MustCompile(`\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4}\b`)

	emailExpr = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// deadlineContextExpr anchors the date search near deadline phrasing so
	// publication dates are not mistaken for closing dates.
	deadlineContextExpr = regexp.MustCompile(`(?i)(?:deadline|apply by|applications?\s+(?:close|due)|closing date)[:\s]*(.{0,80})`)
)

var currencyBySymbol = map[string]string{
	"$":   "USD",
	"US$": "USD",
	"USD": "USD",
	"€":   "EUR",
	"EUR": "EUR",
	"£":   "GBP",
	"GBP": "GBP",
	"₦":   "NGN",
	"NGN": "NGN",
}

// BaseExtraction parses amount, currency, deadline, and contact out of the
// text already fetched, and seeds a low-confidence summary. It makes no
// network calls.
type BaseExtraction struct{}

// NewBaseExtraction creates the rule-based extraction stage.
func NewBaseExtraction() *BaseExtraction {
	return &BaseExtraction{}
}

func (s *BaseExtraction) Name() string { return "base_extraction" }

func (s *BaseExtraction) Targets() []string {
	return []string{
		core.FieldAmount,
		core.FieldCurrency,
		core.FieldDeadline,
		core.FieldContact,
		core.FieldSummary,
	}
}

func (s *BaseExtraction) Enrich(_ context.Context, record *core.EnrichedRecord) ([]string, error) {
	text := record.Title + " " + record.RawBody
	var filled []string

	if match := moneyExpr.FindStringSubmatch(text); match != nil {
		record.SetField(core.FieldAmount, core.FieldValue{
			Value:      strings.TrimSpace(match[0]),
			Confidence: ruleConfidence,
			Stage:      s.Name(),
		})
		filled = append(filled, core.FieldAmount)

		if currency, ok := currencyBySymbol[strings.ToUpper(match[1])]; ok {
			record.SetField(core.FieldCurrency, core.FieldValue{
				Value:      currency,
				Confidence: ruleConfidence,
				Stage:      s.Name(),
			})
			filled = append(filled, core.FieldCurrency)
		}
	}

	if deadline := findDeadline(text); deadline != "" {
		record.SetField(core.FieldDeadline, core.FieldValue{
			Value:      deadline,
			Confidence: ruleConfidence,
			Stage:      s.Name(),
		})
		filled = append(filled, core.FieldDeadline)
	}

	if email := emailExpr.FindString(text); email != "" {
		record.SetField(core.FieldContact, core.FieldValue{
			Value:      email,
			Confidence: ruleConfidence,
			Stage:      s.Name(),
		})
		filled = append(filled, core.FieldContact)
	}

	if summary := summarize(record.RawBody); summary != "" {
		record.SetField(core.FieldSummary, core.FieldValue{
			Value:      summary,
			Confidence: summaryConfidence,
			Stage:      s.Name(),
		})
		filled = append(filled, core.FieldSummary)
	}

	return filled, nil
}

// findDeadline prefers a date adjacent to deadline phrasing, falling back
// to the first date anywhere in the text.
func findDeadline(text string) string {
	if match := deadlineContextExpr.FindStringSubmatch(text); match != nil {
		if date := firstDate(match[1]); date != "" {
			return date
		}
	}
	return firstDate(text)
}

func firstDate(text string) string {
	if date := isoDateExpr.FindString(text); date != "" {
		return date
	}
	return textDateExpr.FindString(text)
}

// summarize truncates body text on a word boundary.
func summarize(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	runes := []rune(body)
	if len(runes) <= summaryMaxRunes {
		return body
	}
	cut := string(runes[:summaryMaxRunes])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
