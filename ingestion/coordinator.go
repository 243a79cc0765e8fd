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

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/enrich"
	"github.com/sievework/prospector/fetch"
	"github.com/sievework/prospector/notify"
	"github.com/sievework/prospector/relevance"
	"github.com/sievework/prospector/schedule"
	"github.com/sievework/prospector/storage"
)

// DefaultChainTimeout bounds one source's fetch→dedup→validate→enrich
// chain. A chain past its deadline is cancelled and counted as a failure.
const DefaultChainTimeout = 2 * time.Minute

// Coordinator drives the pipeline end to end. It owns a bounded worker
// pool; each due source's chain runs as one pool task.
type Coordinator struct {
	pctx      *PipelineContext
	scheduler *schedule.AdaptiveScheduler
	fetcher   fetch.Fetcher
	scorer    *relevance.Scorer
	enricher  *enrich.Pipeline
	notifier  notify.Notifier

	pool         *ants.Pool
	chainTimeout time.Duration
	clock        core.Clock
	logger       *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithPoolSize sets the worker pool width. Default is runtime.NumCPU(),
// with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *Coordinator) error {
		if size < 1 {
			size = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithChainTimeout sets the per-source chain deadline.
func WithChainTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) error {
		if timeout > 0 {
			c.chainTimeout = timeout
		}
		return nil
	}
}

// WithNotifier sets the event and record notifier. Default discards.
func WithNotifier(notifier notify.Notifier) Option {
	return func(c *Coordinator) error {
		if notifier == nil {
			notifier = notify.Noop()
		}
		c.notifier = notifier
		return nil
	}
}

// WithClock sets the time source. Default is the system clock.
func WithClock(clock core.Clock) Option {
	return func(c *Coordinator) error {
		if clock == nil {
			return schedule.ErrClockRequired
		}
		c.clock = clock
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCoordinator creates a coordinator over an already-constructed pipeline
// context and its collaborators.
func NewCoordinator(
	pctx *PipelineContext,
	scheduler *schedule.AdaptiveScheduler,
	fetcher fetch.Fetcher,
	scorer *relevance.Scorer,
	enricher *enrich.Pipeline,
	opts ...Option,
) (*Coordinator, error) {
	if pctx == nil {
		return nil, ErrContextRequired
	}
	if err := pctx.Validate(); err != nil {
		return nil, err
	}
	if scheduler == nil {
		return nil, ErrSchedulerRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if scorer == nil {
		return nil, ErrScorerRequired
	}
	if enricher == nil {
		return nil, ErrEnricherRequired
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		pctx:         pctx,
		scheduler:    scheduler,
		fetcher:      fetcher,
		scorer:       scorer,
		enricher:     enricher,
		notifier:     notify.Noop(),
		pool:         pool,
		chainTimeout: DefaultChainTimeout,
		clock:        core.SystemClock(),
		logger:       slog.Default().With("component", "coordinator"),
	}

	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.Release()
			return nil, optErr
		}
	}

	return c, nil
}

// RunOnce processes every source currently due and returns their events.
// Chains run in parallel on the worker pool with no ordering guarantee.
func (c *Coordinator) RunOnce(ctx context.Context) ([]*core.PipelineEvent, error) {
	due, err := c.scheduler.Due(ctx)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}

	c.enricher.BeginRun()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		events []*core.PipelineEvent
	)

	for _, source := range due {
		wg.Add(1)
		submitErr := c.pool.Submit(func() {
			defer wg.Done()
			event := c.processSource(ctx, source)
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			c.logger.Error("submitting source chain", "source", source.ID, "err", submitErr)
		}
	}

	wg.Wait()
	return events, nil
}

// Run polls until the context is cancelled, sleeping until the next source
// comes due.
func (c *Coordinator) Run(ctx context.Context) error {
	const idleWait = 30 * time.Second

	for {
		if _, err := c.RunOnce(ctx); err != nil {
			c.logger.Error("pipeline cycle failed", "err", err)
		}

		wait := idleWait
		if wake, ok := c.scheduler.NextWake(); ok {
			if until := wake.Sub(c.clock.Now()); until < wait {
				wait = until
			}
		}
		if wait < time.Second {
			wait = time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Submit runs a single submitted URL through the pipeline immediately,
// bypassing the scheduler. Used by the admin-URL and user-submission
// channels.
func (c *Coordinator) Submit(ctx context.Context, source *core.Source) (*core.PipelineEvent, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}
	if !source.Protocol.Submission() {
		return nil, core.ErrInvalidProtocol
	}

	// Submissions run at elevated priority and are not registry-managed.
	source.Priority = 1

	c.enricher.BeginRun()
	event, _ := c.runChain(ctx, source)
	c.notifier.PipelineCompleted(ctx, event)
	return event, nil
}

// processSource runs one source's chain, reports the outcome to the
// scheduler, and emits the chain's event.
func (c *Coordinator) processSource(ctx context.Context, source *core.Source) *core.PipelineEvent {
	event, quality := c.runChain(ctx, source)

	outcome := schedule.Outcome{
		Success:        event.Status == core.EventSuccess,
		ItemsCollected: event.ItemsAccepted,
		Latency:        event.Duration,
		Quality:        quality,
	}
	updated, err := c.scheduler.RecordOutcome(ctx, source.ID, outcome)
	if err != nil {
		c.logger.Error("recording outcome", "source", source.ID, "err", err)
	} else if updated.Suspended {
		event.Status = core.EventSuspended
	}

	c.notifier.PipelineCompleted(ctx, event)
	return event
}

// runChain is the fetch, dedup, validate, enrich, commit pass for one
// source, bounded by the chain deadline. The second return value is the
// mean relevance score of the accepted records, fed back to the scheduler
// as the quality sample.
func (c *Coordinator) runChain(ctx context.Context, source *core.Source) (*core.PipelineEvent, float64) {
	started := c.clock.Now()
	event := &core.PipelineEvent{
		ID:        uuid.NewString(),
		SourceID:  source.ID,
		Status:    core.EventSuccess,
		Dropped:   make(map[string]int),
		StartedAt: started,
	}

	chainCtx, cancel := context.WithTimeout(ctx, c.chainTimeout)
	defer cancel()

	candidates, err := c.fetcher.Fetch(chainCtx, source)
	if err != nil {
		event.Status = core.EventFailure
		event.Errors = append(event.Errors, err.Error())
		event.Duration = c.clock.Now().Sub(started)
		c.logger.Warn("fetch failed", "source", source.ID, "err", err)
		return event, 0
	}

	event.ItemsFound = len(candidates)
	var qualitySum float64

	for _, candidate := range candidates {
		if chainCtx.Err() != nil {
			// Deadline hit mid-chain: remaining work is discarded and the
			// attempt counts as a failure.
			event.Status = core.EventFailure
			event.Errors = append(event.Errors, "chain deadline exceeded")
			break
		}

		disposition := c.processCandidate(chainCtx, source, candidate)
		if disposition.IsAccepted() {
			event.ItemsAccepted++
			qualitySum += disposition.Record.RelevanceScore
			c.notifier.RecordAccepted(chainCtx, disposition.Record)
			continue
		}
		event.Dropped[disposition.Reason.String()]++
	}

	event.Duration = c.clock.Now().Sub(started)
	c.logger.Info("source chain complete",
		"source", source.ID,
		"status", string(event.Status),
		"found", event.ItemsFound,
		"accepted", event.ItemsAccepted,
		"duration", event.Duration)

	quality := 0.0
	if event.ItemsAccepted > 0 {
		quality = qualitySum / float64(event.ItemsAccepted)
	}
	return event, quality
}

// processCandidate decides one candidate's fate. Expected filtering
// outcomes come back as drop reasons, never as errors; the content hash is
// committed only after the candidate has survived everything else.
func (c *Coordinator) processCandidate(ctx context.Context, source *core.Source, candidate *core.Candidate) core.Disposition {
	if err := core.ValidateCandidate(candidate); err != nil {
		c.logger.Debug("invalid candidate", "source", source.ID, "err", err)
		return core.Dropped(core.DropInvalid)
	}

	if candidate.ContentHash == "" {
		candidate.ContentHash = core.ContentHash(candidate.Title, candidate.Link)
	}

	seen, err := c.pctx.Dedup.Contains(ctx, candidate.ContentHash)
	if err != nil {
		c.logger.Error("dedup lookup failed", "source", source.ID, "err", err)
		return core.Dropped(core.DropEnrichmentFailed)
	}
	if seen {
		return core.Dropped(core.DropDuplicate)
	}

	score, ok := c.scorer.Accept(candidate, source)
	if !ok {
		return core.Dropped(core.DropLowRelevance)
	}

	record := &core.EnrichedRecord{
		Candidate:      *candidate,
		RelevanceScore: score,
	}

	disposition := c.enricher.Process(ctx, record)
	if !disposition.IsAccepted() {
		return disposition
	}

	// Persist first: AddRecord is the atomic duplicate check, the index
	// commit just makes the hash visible to future Contains calls.
	if err := c.pctx.Records.AddRecord(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return core.Dropped(core.DropDuplicate)
		}
		c.logger.Error("persisting record", "source", source.ID, "err", err)
		return core.Dropped(core.DropEnrichmentFailed)
	}
	if err := c.pctx.Dedup.Commit(ctx, candidate.ContentHash); err != nil {
		c.logger.Error("committing content hash", "source", source.ID, "err", err)
	}

	return disposition
}

// Release releases the worker pool. The coordinator must not be used after
// calling Release.
func (c *Coordinator) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}
