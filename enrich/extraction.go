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
	"strings"

	"github.com/sievework/prospector/ai"
	"github.com/sievework/prospector/core"
)

// Completer is the slice of the LLM router the enrichment stages use.
type Completer interface {
	Complete(ctx context.Context, task ai.TaskType, messages []ai.Message, opts *ai.Options) (*ai.Response, error)
}

const extractionSystemPrompt = `You extract structured facts about funding opportunities from page text.
Respond with a single JSON object using exactly these keys, with empty strings for facts the text does not state:
{"organization": "", "amount": "", "currency": "", "deadline": "", "location": "", "category": "", "contact": "", "summary": ""}
The deadline must be a date. Never invent values.`

// extraction is the JSON shape LLM extraction responses decode into.
type extraction struct {
	Organization string `json:"organization"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Deadline     string `json:"deadline"`
	Location     string `json:"location"`
	Category     string `json:"category"`
	Contact      string `json:"contact"`
	Summary      string `json:"summary"`
}

func (e *extraction) byField() map[string]string {
	return map[string]string{
		core.FieldOrganization: e.Organization,
		core.FieldAmount:       e.Amount,
		core.FieldCurrency:     e.Currency,
		core.FieldDeadline:     e.Deadline,
		core.FieldLocation:     e.Location,
		core.FieldCategory:     e.Category,
		core.FieldContact:      e.Contact,
		core.FieldSummary:      e.Summary,
	}
}

// extractFields asks the router to pull structured fields out of text and
// folds non-empty answers into the record at the stage's confidence. The
// call is recorded in the record's provenance.
func extractFields(ctx context.Context, completer Completer, record *core.EnrichedRecord,
	stageName, text string, confidence float64) ([]string, error) {

	response, err := completer.Complete(ctx, ai.TaskFieldExtraction, []ai.Message{
		{Role: ai.RoleSystem, Content: extractionSystemPrompt},
		{Role: ai.RoleUser, Content: text},
	}, &ai.Options{JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("field extraction: %w", err)
	}

	record.Provenance = append(record.Provenance, core.ProviderRef{
		Provider:     response.Provider,
		TaskType:     string(ai.TaskFieldExtraction),
		FallbackUsed: response.FallbackUsed,
	})

	var parsed extraction
	if err := json.Unmarshal([]byte(stripFences(response.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableExtraction, err)
	}

	var filled []string
	for name, value := range parsed.byField() {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		record.SetField(name, core.FieldValue{
			Value:      value,
			Confidence: confidence,
			Stage:      stageName,
		})
		filled = append(filled, name)
	}

	return filled, nil
}

// stripFences removes a markdown code fence wrapper some providers emit
// even in JSON mode.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
