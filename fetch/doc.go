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

// Package fetch retrieves raw candidates from configured sources.
//
// Each source protocol has its own fetcher behind a shared Fetcher
// interface; the Dispatcher picks the right one with a closed switch over
// the protocol tag. All network traffic runs through the shared rate
// limiter (keyed by host) and the transient-only retry policy, and HTTP
// failures are classified so the scheduler can tell a flaky source from a
// dead one.
package fetch
