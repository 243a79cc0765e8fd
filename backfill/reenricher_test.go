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


package backfill

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/enrich"
	"github.com/sievework/prospector/storage"
	badgerstore "github.com/sievework/prospector/storage/badger"
)

// boostStage fills the amount field at high confidence.
type boostStage struct {
	calls int
}

func (s *boostStage) Name() string      { return "boost" }
func (s *boostStage) Targets() []string { return []string{"amount"} }

func (s *boostStage) Enrich(_ context.Context, record *core.EnrichedRecord) ([]string, error) {
	s.calls++
	record.SetField("amount", core.FieldValue{Value: "USD 50,000", Confidence: 0.95, Stage: s.Name()})
	return []string{"amount"}, nil
}

// inertStage never fills anything.
type inertStage struct{}

func (s *inertStage) Name() string      { return "inert" }
func (s *inertStage) Targets() []string { return []string{"amount"} }

func (s *inertStage) Enrich(_ context.Context, _ *core.EnrichedRecord) ([]string, error) {
	return nil, nil
}

func storedRecord(t *testing.T, records storage.RecordRepository, title string, confidence float64) *core.EnrichedRecord {
	t.Helper()

	record := &core.EnrichedRecord{
		Candidate: core.Candidate{
			SourceID: "eu-grants-rss",
			Title:    title,
			Link:     "https://example.org/" + title,
		},
		RelevanceScore: 0.6,
		Confidence:     confidence,
		Fields: map[string]core.FieldValue{
			"amount": {Value: "unknown", Confidence: confidence, Stage: "base_extraction"},
		},
	}
	require.NoError(t, records.AddRecord(context.Background(), record))
	return record
}

func TestReenricherUpdatesLowConfidenceRecords(t *testing.T) {
	_, _, records, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	low := storedRecord(t, records, "low-call", 0.4)
	storedRecord(t, records, "settled-call", 0.9)

	stage := &boostStage{}
	pipeline, err := enrich.NewPipeline(enrich.WithStage(stage))
	require.NoError(t, err)

	var buf bytes.Buffer
	runner := NewReenricher(records, pipeline, nil, &buf)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Unchanged)
	assert.Equal(t, 1, stage.calls, "settled record must not reach the stage")

	updated, err := records.GetRecord(context.Background(), low.ContentHash)
	require.NoError(t, err)
	assert.InDelta(t, 0.95, updated.Confidence, 1e-9)
	assert.Contains(t, updated.StagesApplied, "boost")
}

func TestReenricherLeavesUnimprovedRecordsAlone(t *testing.T) {
	_, _, records, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	low := storedRecord(t, records, "stubborn-call", 0.4)

	pipeline, err := enrich.NewPipeline(enrich.WithStage(&inertStage{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	runner := NewReenricher(records, pipeline, nil, &buf)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Examined)
	assert.Zero(t, result.Updated)
	assert.Equal(t, 1, result.Unchanged)

	stored, err := records.GetRecord(context.Background(), low.ContentHash)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, stored.Confidence, 1e-9)
}

func TestReenricherEmptyStore(t *testing.T) {
	_, _, records, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	pipeline, err := enrich.NewPipeline(enrich.WithStage(&inertStage{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	runner := NewReenricher(records, pipeline, nil, &buf)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Examined)
	assert.Contains(t, buf.String(), "No records")
}
