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

// Package schedule decides when each source is checked next.
//
// Every fetch attempt feeds back into the source's rolling metrics: success
// rate, quality of the items it yields, and productivity (items per
// successful fetch). These blend into a priority score in [0,1], damped by a
// penalty that halves with each consecutive failure. Priority maps onto a
// polling interval band, so healthy productive sources are polled every few
// minutes while dead ones back off toward hours. A source that keeps failing
// until its priority collapses is suspended and stays out of the due queue
// until an operator reactivates it.
//
// The scheduler itself is a min-heap of (nextDueTime, sourceID) driven by an
// injected clock, so there are no sleep loops and the whole thing is
// deterministic under test.
package schedule
