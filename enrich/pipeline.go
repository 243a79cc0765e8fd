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
	"errors"
	"log/slog"

	"github.com/sievework/prospector/core"
)

// DefaultConfidenceThreshold is the confidence at which a field counts as
// settled and stages targeting it are skipped.
const DefaultConfidenceThreshold = 0.7

// Stage fills some of a record's structured fields in place, returning the
// names of the fields it filled.
type Stage interface {
	Name() string
	// Targets lists the fields the stage can fill. The pipeline skips the
	// stage once every target is settled.
	Targets() []string
	Enrich(ctx context.Context, record *core.EnrichedRecord) ([]string, error)
}

// runScoped is implemented by stages carrying per-run budgets.
type runScoped interface {
	beginRun()
}

// networkBound is implemented by stages whose work happens over the network.
// They exist to fill gaps in the mandatory fields; once the record's signal
// is settled they are skipped entirely, whatever else remains unfilled.
type networkBound interface {
	networkBound()
}

// Pipeline runs stages in order against one record at a time.
type Pipeline struct {
	stages    []Stage
	threshold float64
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithStage appends a stage. Stages run in the order they are added.
func WithStage(stage Stage) Option {
	return func(p *Pipeline) error {
		p.stages = append(p.stages, stage)
		return nil
	}
}

// WithConfidenceThreshold overrides the settled-field threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(p *Pipeline) error {
		if threshold > 0 {
			p.threshold = threshold
		}
		return nil
	}
}

// WithPipelineLogger sets a custom logger. Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an enrichment pipeline. A pipeline with no stages is
// valid: records pass through on the strength of their fetched fields alone.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		threshold: DefaultConfidenceThreshold,
		logger:    slog.Default().With("component", "enrich"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// BeginRun resets every per-run stage budget. The coordinator calls this
// once at the start of each scheduling cycle.
func (p *Pipeline) BeginRun() {
	for _, stage := range p.stages {
		if scoped, ok := stage.(runScoped); ok {
			scoped.beginRun()
		}
	}
}

// Process runs the record through all stages and decides its fate. A record
// still missing its mandatory signal after every stage is dropped; stage
// failures are terminal for the record only when the record could not stand
// without the failed stage's output.
func (p *Pipeline) Process(ctx context.Context, record *core.EnrichedRecord) core.Disposition {
	var stageFailed bool

	for _, stage := range p.stages {
		if p.settled(record, stage.Targets()) {
			continue
		}
		if _, ok := stage.(networkBound); ok && p.signalSettled(record) {
			continue
		}

		filled, err := stage.Enrich(ctx, record)
		if err != nil {
			if errors.Is(err, ErrBudgetExhausted) {
				p.logger.Debug("stage skipped, budget exhausted",
					"stage", stage.Name(), "link", record.Link)
				continue
			}
			stageFailed = true
			p.logger.Warn("enrichment stage failed",
				"stage", stage.Name(), "link", record.Link, "err", err)
			continue
		}

		if len(filled) > 0 {
			record.StagesApplied = append(record.StagesApplied, stage.Name())
		}
	}

	record.Confidence = meanConfidence(record)

	if record.Title == "" || record.Link == "" || !record.HasSignal() {
		if stageFailed {
			return core.Dropped(core.DropEnrichmentFailed)
		}
		return core.Dropped(core.DropInsufficientSignal)
	}

	return core.Accepted(record)
}

// settled reports whether every target field already meets the confidence
// threshold.
func (p *Pipeline) settled(record *core.EnrichedRecord, targets []string) bool {
	for _, name := range targets {
		fv, ok := record.Field(name)
		if !ok || fv.Confidence < p.threshold {
			return false
		}
	}
	return len(targets) > 0
}

// signalSettled reports whether the record already carries everything a
// record needs to be published: a title, a link, and at least one of the
// amount or deadline fields at or above the confidence threshold.
func (p *Pipeline) signalSettled(record *core.EnrichedRecord) bool {
	if record.Title == "" || record.Link == "" {
		return false
	}
	for _, name := range []string{core.FieldAmount, core.FieldDeadline} {
		if fv, ok := record.Field(name); ok && fv.Value != "" && fv.Confidence >= p.threshold {
			return true
		}
	}
	return false
}

func meanConfidence(record *core.EnrichedRecord) float64 {
	if len(record.Fields) == 0 {
		return 0
	}
	total := 0.0
	for _, fv := range record.Fields {
		total += fv.Confidence
	}
	return total / float64(len(record.Fields))
}
