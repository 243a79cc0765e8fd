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

package fetch

import "errors"

var (
	// ErrClientRequired is returned when a nil HTTP client is supplied.
	ErrClientRequired = errors.New("http client is required")

	// ErrClockRequired is returned when a nil clock is supplied.
	ErrClockRequired = errors.New("clock is required")

	// ErrUpstreamRejected marks a terminal (non-retryable) upstream
	// response, typically a 4xx status.
	ErrUpstreamRejected = errors.New("upstream rejected the request")

	// ErrMalformedFeed marks a feed or API payload that could not be
	// parsed. Terminal for the attempt; the scheduler decides what the
	// pattern means for the source.
	ErrMalformedFeed = errors.New("malformed feed payload")
)
