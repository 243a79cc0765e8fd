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

package schedule

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sievework/prospector/core"
	"github.com/sievework/prospector/storage"
)

// AdaptiveScheduler owns the per-source metrics and the due queue. One
// instance serves the whole pipeline; all methods are safe for concurrent
// use.
//
// A source popped by Due leaves the queue until RecordOutcome (or Track)
// reschedules it, so a source is never handed to two workers at once.
type AdaptiveScheduler struct {
	registry storage.SourceRepository
	clock    core.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	queue   dueQueue
	entries map[string]*dueEntry
}

// Option configures an AdaptiveScheduler.
type Option func(*AdaptiveScheduler) error

// WithClock sets the time source. Default is the system clock.
func WithClock(clock core.Clock) Option {
	return func(s *AdaptiveScheduler) error {
		if clock == nil {
			return ErrClockRequired
		}
		s.clock = clock
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *AdaptiveScheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler over the given source registry.
func NewScheduler(registry storage.SourceRepository, opts ...Option) (*AdaptiveScheduler, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	s := &AdaptiveScheduler{
		registry: registry,
		clock:    core.SystemClock(),
		logger:   slog.Default().With("component", "scheduler"),
		entries:  make(map[string]*dueEntry),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Load enqueues every polled source in the registry. Submission-channel
// sources are skipped since they bypass the scheduler entirely. Suspended
// sources are skipped until reactivated.
func (s *AdaptiveScheduler) Load(ctx context.Context) error {
	sources, err := s.registry.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}

	for _, source := range sources {
		if source.Protocol.Submission() || source.Suspended {
			continue
		}
		s.Track(source)
	}

	s.logger.Info("scheduler loaded", "tracked", s.Len())
	return nil
}

// Track enqueues a source at its natural due time: LastCheckedAt plus the
// current interval, or immediately for a source never checked before. An
// already-tracked source is rescheduled.
func (s *AdaptiveScheduler) Track(source *core.Source) {
	at := s.clock.Now()
	if !source.LastCheckedAt.IsZero() {
		at = source.LastCheckedAt.Add(clampInterval(source.CurrentInterval))
	}
	s.schedule(source.ID, at)
}

// Due pops every source whose due time has arrived. Suspended sources are
// excluded regardless of elapsed time; sources deleted from the registry
// fall out of the queue silently.
func (s *AdaptiveScheduler) Due(ctx context.Context) ([]*core.Source, error) {
	now := s.clock.Now()

	s.mu.Lock()
	var ids []string
	for s.queue.Len() > 0 && !s.queue[0].at.After(now) {
		entry := heap.Pop(&s.queue).(*dueEntry)
		delete(s.entries, entry.sourceID)
		ids = append(ids, entry.sourceID)
	}
	s.mu.Unlock()

	due := make([]*core.Source, 0, len(ids))
	for i, id := range ids {
		source, err := s.registry.GetSource(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			// A registry failure must not lose the popped sources: put the
			// unread ones back so the next Due call sees them again.
			for _, pending := range ids[i:] {
				s.schedule(pending, now)
			}
			return due, fmt.Errorf("loading due source %s: %w", id, err)
		}
		if source.Suspended {
			continue
		}
		due = append(due, source)
	}

	return due, nil
}

// NextWake returns the earliest due time in the queue, or false when the
// queue is empty. The coordinator sleeps until this instant.
func (s *AdaptiveScheduler) NextWake() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].at, true
}

// Len returns how many sources are currently queued.
func (s *AdaptiveScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// RecordOutcome folds one fetch outcome into a source's metrics, persists
// the source, and reschedules it at now plus the recomputed interval. A
// source that trips the auto-suspension thresholds is persisted suspended
// and not requeued. The updated source is returned.
func (s *AdaptiveScheduler) RecordOutcome(ctx context.Context, sourceID string, outcome Outcome) (*core.Source, error) {
	source, err := s.registry.GetSource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("loading source %s: %w", sourceID, err)
	}

	applyOutcome(source, outcome, s.clock.Now())

	if err := s.registry.PutSource(ctx, source); err != nil {
		return nil, fmt.Errorf("persisting source %s: %w", sourceID, err)
	}

	if source.Suspended {
		s.drop(sourceID)
		s.logger.Warn("source suspended",
			"source", sourceID,
			"priority", source.Priority,
			"consecutive_failures", source.ConsecutiveFailures)
		return source, nil
	}

	s.schedule(sourceID, source.LastCheckedAt.Add(source.CurrentInterval))

	s.logger.Debug("outcome recorded",
		"source", sourceID,
		"success", outcome.Success,
		"items", outcome.ItemsCollected,
		"priority", source.Priority,
		"next_interval", source.CurrentInterval)

	return source, nil
}

// Reactivate clears a source's suspension, resets its failure streak and
// priority to the neutral prior, and queues it for an immediate check.
func (s *AdaptiveScheduler) Reactivate(ctx context.Context, sourceID string) (*core.Source, error) {
	source, err := s.registry.GetSource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("loading source %s: %w", sourceID, err)
	}

	source.Suspended = false
	source.ConsecutiveFailures = 0
	source.Priority = neutralPriority
	source.CurrentInterval = clampInterval(source.BaseInterval)
	source.UpdatedAt = s.clock.Now()

	if err := s.registry.PutSource(ctx, source); err != nil {
		return nil, fmt.Errorf("persisting source %s: %w", sourceID, err)
	}

	s.schedule(sourceID, s.clock.Now())
	s.logger.Info("source reactivated", "source", sourceID)

	return source, nil
}

// schedule inserts or moves a source's queue entry to the given due time.
func (s *AdaptiveScheduler) schedule(sourceID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[sourceID]; ok {
		entry.at = at
		heap.Fix(&s.queue, entry.index)
		return
	}

	entry := &dueEntry{sourceID: sourceID, at: at}
	s.entries[sourceID] = entry
	heap.Push(&s.queue, entry)
}

// drop removes a source's queue entry if present.
func (s *AdaptiveScheduler) drop(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sourceID]
	if !ok {
		return
	}
	heap.Remove(&s.queue, entry.index)
	delete(s.entries, sourceID)
}

// dueEntry is one queued source keyed by its next due time.
type dueEntry struct {
	sourceID string
	at       time.Time
	index    int
}

// dueQueue is a min-heap over due times.
type dueQueue []*dueEntry

func (q dueQueue) Len() int           { return len(q) }
func (q dueQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q dueQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }

func (q *dueQueue) Push(x any) {
	entry := x.(*dueEntry)
	entry.index = len(*q)
	*q = append(*q, entry)
}

func (q *dueQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return entry
}
