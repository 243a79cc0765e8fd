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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/enrich"
	"github.com/sievework/prospector/ratelimit"
	"github.com/sievework/prospector/storage"
)

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of records to process in each batch. Each
	// batch gets a fresh set of per-run stage budgets.
	BatchSize int

	// ReportInterval is how often to report progress, in records.
	ReportInterval int

	// ConfidenceCeiling selects which records get another pass: only
	// records below it are re-enriched.
	ConfidenceCeiling float64

	// MaxRetries is the maximum number of attempts for a storage write.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:         100,
		ReportInterval:    100,
		ConfidenceCeiling: enrich.DefaultConfidenceThreshold,
		MaxRetries:        3,
		RetryDelay:        1 * time.Second,
	}
}

// Result summarizes a backfill run.
type Result struct {
	// Examined is the number of stored records considered.
	Examined int
	// Updated is the number of records improved and written back.
	Updated int
	// Unchanged is the number of eligible records the pipeline could not
	// improve; their stored state is left alone.
	Unchanged int
}

// Reenricher re-runs the enrichment pipeline over low-confidence records.
type Reenricher struct {
	records  storage.RecordRepository
	enricher *enrich.Pipeline
	config   *Config
	progress io.Writer
}

// NewReenricher creates a reenricher.
// progress: where to write progress output (typically os.Stderr)
func NewReenricher(records storage.RecordRepository, enricher *enrich.Pipeline, config *Config, progress io.Writer) *Reenricher {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reenricher{
		records:  records,
		enricher: enricher,
		config:   config,
		progress: progress,
	}
}

// Run re-enriches every stored record below the confidence ceiling. A record
// the pipeline would now drop keeps its stored state: acceptance was decided
// at collection time and a backfill only ever improves records.
func (r *Reenricher) Run(ctx context.Context) (*Result, error) {
	all, err := r.records.ListRecords(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	eligible := make([]*core.EnrichedRecord, 0, len(all))
	for _, record := range all {
		if record.Confidence < r.config.ConfidenceCeiling {
			eligible = append(eligible, record)
		}
	}

	result := &Result{Examined: len(all)}
	if len(eligible) == 0 {
		fmt.Fprintf(r.progress, "No records below confidence %.2f (%d examined)\n",
			r.config.ConfidenceCeiling, len(all))
		return result, nil
	}

	fmt.Fprintf(r.progress, "Re-enriching %d of %d records (batch size: %d)\n",
		len(eligible), len(all), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(eligible), r.config.ReportInterval)
	tracker.Start()

	for i := 0; i < len(eligible); i += r.config.BatchSize {
		end := min(i+r.config.BatchSize, len(eligible))

		if err := r.processBatch(ctx, eligible[i:end], result); err != nil {
			return nil, err
		}
		tracker.Add(end - i)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Backfill complete. Updated %d of %d eligible records in %v\n",
		result.Updated, len(eligible), elapsed.Round(time.Second))

	return result, nil
}

// processBatch runs one batch under fresh stage budgets.
func (r *Reenricher) processBatch(ctx context.Context, batch []*core.EnrichedRecord, result *Result) error {
	r.enricher.BeginRun()

	for _, record := range batch {
		before := record.Confidence

		disposition := r.enricher.Process(ctx, record)
		if !disposition.IsAccepted() || record.Confidence <= before {
			result.Unchanged++
			continue
		}

		err := ratelimit.RetryWithBackoff(ctx, func() error {
			return r.records.UpdateRecord(ctx, record)
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to update record %s: %w", record.ContentHash, err)
		}
		result.Updated++
	}

	return nil
}
