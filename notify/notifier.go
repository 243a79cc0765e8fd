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

package notify

import (
	"context"

	"github.com/sievework/prospector/core"
)

// Notifier receives pipeline output as it is produced.
// Implement this interface to forward events and records elsewhere.
type Notifier interface {
	// PipelineCompleted is called once per completed source chain.
	PipelineCompleted(ctx context.Context, event *core.PipelineEvent)
	// RecordAccepted is called for every record that survives the pipeline.
	RecordAccepted(ctx context.Context, record *core.EnrichedRecord)
}

// noopNotifier is a no-op implementation of Notifier.
type noopNotifier struct{}

var _ Notifier = (*noopNotifier)(nil)

// Noop returns a notifier that discards everything.
func Noop() Notifier {
	return &noopNotifier{}
}

func (n *noopNotifier) PipelineCompleted(_ context.Context, _ *core.PipelineEvent) {}
func (n *noopNotifier) RecordAccepted(_ context.Context, _ *core.EnrichedRecord)   {}

// Multi fans out to several notifiers in order.
type Multi []Notifier

var _ Notifier = (Multi)(nil)

func (m Multi) PipelineCompleted(ctx context.Context, event *core.PipelineEvent) {
	for _, n := range m {
		n.PipelineCompleted(ctx, event)
	}
}

func (m Multi) RecordAccepted(ctx context.Context, record *core.EnrichedRecord) {
	for _, n := range m {
		n.RecordAccepted(ctx, record)
	}
}
