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
	"math"
	"time"

	"github.com/sievework/prospector/core"
)

const (
	// emaAlpha is the smoothing factor for the quality and productivity EMAs.
	emaAlpha = 0.3

	// Blend weights for the priority score.
	successWeight      = 0.4
	qualityWeight      = 0.3
	productivityWeight = 0.3

	// productivityMidpoint is the items-per-fetch rate that normalizes to
	// 0.5. The normalization saturates smoothly so a single huge fetch
	// cannot pin productivity at 1.
	productivityMidpoint = 5.0

	// minObservations is how many attempts a source needs before its own
	// metrics replace the neutral prior.
	minObservations = 3
	neutralPriority = 0.5

	// failurePenaltyCap bounds the consecutive-failure penalty exponent.
	failurePenaltyCap = 5

	// Auto-suspension thresholds.
	suspendPriorityFloor    = 0.1
	suspendFailureThreshold = 10

	// Global interval bounds.
	MinInterval = 5 * time.Minute
	MaxInterval = 24 * time.Hour
)

// Interval bands by priority tier. Within a band the interval interpolates
// linearly, higher priority mapping to the shorter end.
var intervalBands = []struct {
	floor    float64
	ceiling  float64
	shortest time.Duration
	longest  time.Duration
}{
	{0.7, 1.0, 5 * time.Minute, 15 * time.Minute},
	{0.4, 0.7, 15 * time.Minute, 60 * time.Minute},
	{0.0, 0.4, 60 * time.Minute, 180 * time.Minute},
}

// Outcome is the result of one fetch attempt against a source.
type Outcome struct {
	Success        bool
	ItemsCollected int
	Latency        time.Duration

	// Quality is the mean relevance score of the accepted items, in [0,1].
	// Ignored on failure.
	Quality float64
}

// ComputePriority blends the source's success rate, quality EMA, and
// normalized productivity EMA into a score in [0,1], scaled by a penalty
// that halves per consecutive failure. Sources with fewer than three
// observations get the neutral prior instead of their own (noisy) metrics.
func ComputePriority(source *core.Source) float64 {
	penalty := math.Pow(0.5, float64(min(source.ConsecutiveFailures, failurePenaltyCap)))

	if source.Observations() < minObservations {
		return neutralPriority * penalty
	}

	successRate := float64(source.SuccessCount) / float64(source.Observations())
	productivity := source.ProductivityEMA / (source.ProductivityEMA + productivityMidpoint)

	score := successWeight*successRate +
		qualityWeight*source.QualityEMA +
		productivityWeight*productivity

	return clamp01(score * penalty)
}

// NextInterval maps a priority score onto a polling interval. The mapping is
// continuous and monotone: lower priority never yields a shorter interval.
func NextInterval(priority float64) time.Duration {
	priority = clamp01(priority)

	for _, band := range intervalBands {
		if priority < band.floor {
			continue
		}
		// Position within the band: 0 at the ceiling, 1 at the floor.
		frac := (band.ceiling - priority) / (band.ceiling - band.floor)
		interval := band.shortest + time.Duration(frac*float64(band.longest-band.shortest))
		return clampInterval(interval)
	}

	return clampInterval(intervalBands[len(intervalBands)-1].longest)
}

// applyOutcome folds one fetch outcome into the source's metrics and
// recomputes its priority and interval. It flags the source suspended once
// priority collapses under sustained failure.
func applyOutcome(source *core.Source, outcome Outcome, now time.Time) {
	if outcome.Success {
		source.SuccessCount++
		source.ConsecutiveFailures = 0
		source.QualityEMA = rollEMA(source.QualityEMA, clamp01(outcome.Quality))
		source.ProductivityEMA = rollEMA(source.ProductivityEMA, float64(outcome.ItemsCollected))
	} else {
		source.FailureCount++
		source.ConsecutiveFailures++
	}

	source.LastCheckedAt = now
	source.UpdatedAt = now
	source.Priority = ComputePriority(source)
	source.CurrentInterval = NextInterval(source.Priority)

	if source.Priority < suspendPriorityFloor &&
		source.ConsecutiveFailures >= suspendFailureThreshold {
		source.Suspended = true
	}
}

// rollEMA folds a sample into an exponential moving average, seeding with
// the sample itself when no history exists yet.
func rollEMA(current, sample float64) float64 {
	if current == 0 {
		return sample
	}
	return emaAlpha*sample + (1-emaAlpha)*current
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
